package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name MatchSource --dir ../usecase --output usecase --outpkg sourcemock --filename match_source_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/matchstats --output domain/matchstats --outpkg matchstatsmock --filename repository_mock.go

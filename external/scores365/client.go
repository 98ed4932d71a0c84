package scores365

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/resilience"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

const (
	defaultBaseURL       = "https://webws.365scores.com"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultCompetitionID = 649
	defaultSeasonNum     = 53
	maxResponseBytes     = 6 << 20
	maxPages             = 500

	fixturesPath = "/web/games/fixtures/"
	resultsPath  = "/web/games/results/"
	gamePath     = "/web/game/"
)

var errScoresTransient = crerr.New("scores365 transient failure")

// RequestObserver receives one call per provider request attempt.
type RequestObserver interface {
	ObserveProviderRequest(endpoint, outcome string, elapsed time.Duration)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	CompetitionID  int64
	SeasonNum      int
	Timeout        time.Duration
	MaxRetries     int
	RateLimit      float64
	Logger         *logging.Logger
	Observer       RequestObserver
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads fixtures, results and match details from the 365Scores web API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	competitionID  int64
	seasonNum      int
	maxRetries     int
	logger         *logging.Logger
	observer       RequestObserver
	limiter        *rate.Limiter
	validate       *validator.Validate
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[[]byte]
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	competitionID := cfg.CompetitionID
	if competitionID <= 0 {
		competitionID = defaultCompetitionID
	}
	seasonNum := cfg.SeasonNum
	if seasonNum <= 0 {
		seasonNum = defaultSeasonNum
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	breakerCfg := cfg.CircuitBreaker.WithDefaults()
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
			logger.Warn("provider circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
		}
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		userAgent:      firstNonEmpty(cfg.UserAgent, defaultUserAgent),
		competitionID:  competitionID,
		seasonNum:      seasonNum,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		observer:       cfg.Observer,
		limiter:        rate.NewLimiter(limit, 1),
		validate:       validator.New(),
		breaker:        resilience.NewCircuitBreaker("scores365", breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

// FetchUpcoming walks the fixtures list forward through paging.nextPage.
func (c *Client) FetchUpcoming(ctx context.Context) ([]fixture.Match, error) {
	matches, err := c.fetchPaged(ctx, "fixtures", c.listPath(fixturesPath), func(p paging) string { return p.NextPage })
	if err != nil {
		return nil, fmt.Errorf("fetch upcoming fixtures: %w", err)
	}
	return matches, nil
}

// FetchFinishedHistory walks the results list backward through paging.previousPage.
func (c *Client) FetchFinishedHistory(ctx context.Context) ([]fixture.Match, error) {
	matches, err := c.fetchPaged(ctx, "results", c.listPath(resultsPath), func(p paging) string { return p.PreviousPage })
	if err != nil {
		return nil, fmt.Errorf("fetch finished history: %w", err)
	}
	return matches, nil
}

func (c *Client) FetchMatchDetail(ctx context.Context, matchID int64) (fixture.MatchDetail, error) {
	if matchID <= 0 {
		return fixture.MatchDetail{}, fmt.Errorf("%w: match id must be greater than zero", usecase.ErrInvalidInput)
	}

	values := c.baseQuery()
	values.Set("gameId", strconv.FormatInt(matchID, 10))
	path := gamePath + "?" + values.Encode()

	var envelope detailEnvelope
	if err := c.doJSON(ctx, "game", path, &envelope); err != nil {
		return fixture.MatchDetail{}, fmt.Errorf("fetch match detail game_id=%d: %w", matchID, err)
	}
	if envelope.Game == nil || envelope.Game.raw == nil {
		return fixture.MatchDetail{}, fmt.Errorf("fetch match detail game_id=%d: %w: no game data in response", matchID, usecase.ErrNotFound)
	}
	if envelope.Game.decodeErr != nil {
		return fixture.MatchDetail{}, fmt.Errorf("fetch match detail game_id=%d: decode game: %w", matchID, envelope.Game.decodeErr)
	}

	detail := normalizeDetail(envelope.Game.gamePayload, envelope.Game.raw, c.now())
	if !envelope.Game.ID.Set {
		detail.ID = matchID
	}
	return detail, nil
}

func (c *Client) fetchPaged(ctx context.Context, endpoint, firstPage string, next func(paging) string) ([]fixture.Match, error) {
	out := make([]fixture.Match, 0, 64)
	seen := make(map[string]struct{}, 8)
	fetchedAt := c.now()
	total := 0

	page := firstPage
	for pageNum := 1; page != ""; pageNum++ {
		if pageNum > maxPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", maxPages)
		}
		if _, dup := seen[page]; dup {
			c.logger.WarnContext(ctx, "provider returned a repeated page cursor, stopping", "endpoint", endpoint, "page", pageNum)
			break
		}
		seen[page] = struct{}{}

		var envelope listEnvelope
		if err := c.doJSON(ctx, endpoint, page, &envelope); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		total += len(envelope.Games)

		for _, game := range envelope.Games {
			if game.raw == nil {
				continue
			}
			if game.decodeErr != nil {
				c.logger.WarnContext(ctx, "skip undecodable provider game", "endpoint", endpoint, "page", pageNum, "error", game.decodeErr)
				continue
			}
			match := normalizeMatch(game.gamePayload, game.raw, fetchedAt)
			if !c.inScope(match) {
				continue
			}
			if err := c.validate.StructCtx(ctx, match); err != nil {
				c.logger.WarnContext(ctx, "skip invalid provider match", "endpoint", endpoint, "match_id", match.ID, "error", err)
				continue
			}
			out = append(out, match)
		}
		c.logger.DebugContext(ctx, "provider page fetched", "endpoint", endpoint, "page", pageNum, "games", len(envelope.Games))

		page = strings.TrimSpace(next(envelope.Paging))
	}

	c.logger.InfoContext(ctx, "provider list fetched",
		"endpoint", endpoint,
		"games_total", total,
		"games_in_scope", len(out),
		"season_num", c.seasonNum,
		"competition_id", c.competitionID,
	)
	return out, nil
}

func (c *Client) inScope(m fixture.Match) bool {
	if m.SeasonNum != c.seasonNum {
		return false
	}
	return m.HasCompetition(c.competitionID)
}

func (c *Client) baseQuery() url.Values {
	values := url.Values{}
	values.Set("appTypeId", "5")
	values.Set("langId", "1")
	values.Set("timezoneName", "UTC")
	values.Set("userCountryId", "1")
	return values
}

func (c *Client) listPath(path string) string {
	values := c.baseQuery()
	values.Set("competitions", strconv.FormatInt(c.competitionID, 10))
	return path + "?" + values.Encode()
}

// resolve turns a provider-relative cursor into an absolute URL.
func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	if !strings.HasPrefix(pathOrURL, "/") {
		pathOrURL = "/" + pathOrURL
	}
	return c.baseURL + pathOrURL
}

func (c *Client) doJSON(ctx context.Context, endpoint, pathOrURL string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "scores365 circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.resolve(pathOrURL)
	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		body, reqErr := c.executeRequest(ctx, endpoint, fullURL)
		if c.circuitEnabled {
			c.breaker.Record(reqErr, isTransient)
		}
		return body, reqErr
	})
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		startedAt := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errScoresTransient, err)
			c.observe(endpoint, "network_error", startedAt)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			c.observe(endpoint, strconv.Itoa(resp.StatusCode), startedAt)
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errScoresTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errScoresTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "scores365 request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) observe(endpoint, outcome string, startedAt time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveProviderRequest(endpoint, outcome, time.Since(startedAt))
}

func isTransient(err error) bool {
	return crerr.Is(err, errScoresTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

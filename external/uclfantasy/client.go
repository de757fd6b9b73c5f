// Package uclfantasy integrates with the UCL Fantasy provider: session
// login/logout, the matchday player feed, and the user's current team.
package uclfantasy

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/platform/cache"
	"github.com/uclfantasy/squad-optimizer/internal/platform/logging"
	"github.com/uclfantasy/squad-optimizer/internal/platform/resilience"
)

const (
	loginPath   = "/services/api/Session/login"
	logoutPath  = "/services/api/Session/logout"
	playersPath = "/services/api/Feed/players"
	teamPath    = "/services/api/Gameplay/user/%s/team"

	refererHeader = "/services/index.html"
)

var errFeedTransient = crerr.New("uclfantasy transient failure")

// IsTransient reports whether err came from a retryable provider failure
// (network error, timeout, 5xx, rate limit).
func IsTransient(err error) bool {
	return stderrors.Is(err, errFeedTransient)
}

type Config struct {
	BaseURL        string
	Email          string
	Password       string
	Timeout        time.Duration
	FeedCacheTTL   time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is a session-scoped provider client. It keeps the login cookies and
// user guid between calls and dedupes concurrent feed fetches per matchday.
type Client struct {
	http           *fasthttp.Client
	baseURL        string
	email          string
	password       string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	feedCache      *cache.Store

	mu      sync.Mutex
	cookies map[string]string
	guid    string
}

func NewClient(cfg Config, logger *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cacheTTL := cfg.FeedCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		http:           &fasthttp.Client{ReadTimeout: timeout, WriteTimeout: timeout},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		email:          strings.TrimSpace(cfg.Email),
		password:       cfg.Password,
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		feedCache:      cache.NewStore(cacheTTL),
		cookies:        make(map[string]string),
	}
}

type sessionEnvelope struct {
	Data struct {
		Value struct {
			Raw struct {
				GUID string `json:"guid"`
			} `json:"UCL_CLASSIC_RAW"`
		} `json:"value"`
	} `json:"data"`
}

type feedEnvelope struct {
	Data struct {
		Value struct {
			PlayerList []feedPlayer `json:"playerList"`
		} `json:"value"`
	} `json:"data"`
}

// feedPlayer mirrors the provider's player row. Numbers stay json.Number
// because the feed is inconsistent about quoting them; the catalog does the
// real validation.
type feedPlayer struct {
	ID               json.Number `json:"id"`
	DisplayName      string      `json:"pDName"`
	ClubCode         string      `json:"cCode"`
	Skill            json.Number `json:"skill"`
	Value            json.Number `json:"value"`
	TotalPoints      json.Number `json:"totPts"`
	AvgPoints        json.Number `json:"avgPlayerPts"`
	LastGdPoints     json.Number `json:"lastGdPoints"`
	SelectionPercent json.Number `json:"selPer"`
	IsActive         json.Number `json:"isActive"`
	Trained          string      `json:"trained"`
}

type teamEnvelope struct {
	Data struct {
		Value struct {
			PlayerIDs   []json.Number `json:"playerid"`
			TeamBalance json.Number   `json:"teamBalance"`
		} `json:"value"`
	} `json:"data"`
}

// Login opens a provider session and captures the cookies plus the user guid
// later team lookups need.
func (c *Client) Login(ctx context.Context) error {
	payload, err := sonic.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return crerr.Wrap(err, "marshal login payload")
	}

	var envelope sessionEnvelope
	if err := c.doJSON(ctx, fasthttp.MethodPost, c.baseURL+loginPath, payload, &envelope); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.mu.Lock()
	c.guid = strings.TrimSpace(envelope.Data.Value.Raw.GUID)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "uclfantasy session opened", "has_guid", c.UserGUID() != "")
	return nil
}

// Logout closes the session and drops the captured state.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, fasthttp.MethodPost, c.baseURL+logoutPath, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	c.mu.Lock()
	c.cookies = make(map[string]string)
	c.guid = ""
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "uclfantasy session closed")
	return nil
}

func (c *Client) UserGUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guid
}

// PlayersByMatchday fetches one matchday's player pool, serving repeats from
// the feed cache.
func (c *Client) PlayersByMatchday(ctx context.Context, matchday int) ([]player.Record, error) {
	key := "feed:players:" + strconv.Itoa(matchday)
	value, err := c.feedCache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return c.fetchPlayers(ctx, matchday)
	})
	if err != nil {
		return nil, err
	}

	records, ok := value.([]player.Record)
	if !ok {
		return nil, crerr.Newf("unexpected cache entry type %T for %s", value, key)
	}
	return records, nil
}

func (c *Client) fetchPlayers(ctx context.Context, matchday int) ([]player.Record, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString(playersPath)
	_, _ = buf.WriteString("?gamedayId=")
	_, _ = buf.WriteString(strconv.Itoa(matchday))
	_, _ = buf.WriteString("&language=en")

	var envelope feedEnvelope
	if err := c.doJSON(ctx, fasthttp.MethodGet, buf.String(), nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch players matchday=%d: %w", matchday, err)
	}

	records := make([]player.Record, 0, len(envelope.Data.Value.PlayerList))
	for _, row := range envelope.Data.Value.PlayerList {
		records = append(records, row.toRecord())
	}

	c.logger.InfoContext(ctx, "player feed fetched", "matchday", matchday, "players", len(records))
	return records, nil
}

// CurrentSquad fetches the user's team ahead of a matchday. The second return
// value is false when no team exists yet.
func (c *Client) CurrentSquad(ctx context.Context, matchday int) (squad.Current, bool, error) {
	guid := c.UserGUID()
	if guid == "" {
		return squad.Current{}, false, crerr.New("current squad requires a logged-in session")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString(fmt.Sprintf(teamPath, guid))
	_, _ = buf.WriteString("?matchdayId=")
	_, _ = buf.WriteString(strconv.Itoa(matchday))
	_, _ = buf.WriteString("&phaseId=1")

	var envelope teamEnvelope
	if err := c.doJSON(ctx, fasthttp.MethodGet, buf.String(), nil, &envelope); err != nil {
		return squad.Current{}, false, fmt.Errorf("fetch current squad matchday=%d: %w", matchday, err)
	}

	value := envelope.Data.Value
	if len(value.PlayerIDs) == 0 {
		return squad.Current{}, false, nil
	}

	ids := make([]string, 0, len(value.PlayerIDs))
	for _, id := range value.PlayerIDs {
		ids = append(ids, id.String())
	}
	balance, _ := value.TeamBalance.Float64()

	return squad.Current{PlayerIDs: ids, TeamBalance: balance}, true, nil
}

func (p feedPlayer) toRecord() player.Record {
	isActive, _ := strconv.Atoi(p.IsActive.String())
	skill, _ := strconv.Atoi(p.Skill.String())
	return player.Record{
		ID:                 p.ID.String(),
		Name:               p.DisplayName,
		Club:               p.ClubCode,
		SkillCode:          skill,
		Price:              p.Value.String(),
		TotalPoints:        p.TotalPoints.String(),
		AvgPoints:          p.AvgPoints.String(),
		LastMatchdayPoints: p.LastGdPoints.String(),
		SelectionPercent:   p.SelectionPercent.String(),
		IsActive:           isActive,
		TrainingStatus:     p.Trained,
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "uclfantasy circuit breaker rejected request", "state", string(c.breaker.State()))
			return fmt.Errorf("uclfantasy is temporarily unavailable: %w", err)
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetReferer(c.baseURL + refererHeader)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	c.attachCookies(req)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		callErr := fmt.Errorf("%w: %s %s: %v", errFeedTransient, method, url, err)
		c.recordCircuitResult(callErr)
		return callErr
	}

	c.captureCookies(resp)

	status := resp.StatusCode()
	if status/100 != 2 {
		snippet := truncateForLog(string(resp.Body()), 512)
		if isRetryableStatus(status) {
			callErr := fmt.Errorf("%w: %s %s status=%d body=%s", errFeedTransient, method, url, status, snippet)
			c.recordCircuitResult(callErr)
			return callErr
		}
		callErr := fmt.Errorf("%s %s status=%d body=%s", method, url, status, snippet)
		c.recordCircuitResult(callErr)
		return callErr
	}

	if out != nil {
		if err := sonic.Unmarshal(resp.Body(), out); err != nil {
			callErr := crerr.Wrapf(err, "decode %s %s response", method, url)
			c.recordCircuitResult(nil)
			return callErr
		}
	}

	c.recordCircuitResult(nil)
	return nil
}

func (c *Client) attachCookies(req *fasthttp.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, value := range c.cookies {
		req.Header.SetCookie(name, value)
	}
}

func (c *Client) captureCookies(resp *fasthttp.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp.Header.VisitAllCookie(func(_, value []byte) {
		cookie := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(cookie)
		if err := cookie.ParseBytes(value); err != nil {
			return
		}
		c.cookies[string(cookie.Key())] = string(cookie.Value())
	})
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled || c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if IsTransient(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusRequestTimeout ||
		status == fasthttp.StatusTooManyRequests ||
		status >= fasthttp.StatusInternalServerError
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	// back off to a rune boundary so the snippet stays valid UTF-8
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "...(truncated)"
}

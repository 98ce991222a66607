package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"satang/config"
)

// userAgents is rotated per request. The gateway throttles repeated
// identical clients, so requests are diversified to look like ordinary
// browser traffic.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148",
	"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
}

// HTTPClient talks to the gateway's GET API, authenticated by merchant id
// and shared secret query parameters.
type HTTPClient struct {
	baseURL    string
	merchantID string
	secret     string
	client     *http.Client
}

func NewHTTPClient(cfg *config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		secret:     cfg.SharedSecret,
		client:     &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type createPayResp struct {
	Status string `json:"status"`
	PayID  string `json:"payid"`
	Msg    string `json:"msg"`
}

type detailPayResp struct {
	Status   string `json:"status"`
	QRCode   string `json:"qrcode"`
	Amount   int64  `json:"amount"`
	TimeLeft int64  `json:"time_left"`
	Msg      string `json:"msg"`
}

type confirmResp struct {
	Status string `json:"status"`
	Ref    string `json:"ref"`
	Amount int64  `json:"amount"`
	Msg    string `json:"msg"`
}

// get issues a GET with the merchant credentials plus extra params and
// returns the raw body. Network errors, 5xx and unreadable bodies map to
// ErrUnreachable; the caller decodes and decides between success and
// ErrRejected from the response shape.
func (c *HTTPClient) get(ctx context.Context, op string, params url.Values) ([]byte, error) {
	params.Set("merchant_id", c.merchantID)
	params.Set("secret", c.secret)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, op, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrUnreachable, op, err)
	}
	log.WithFields(log.Fields{"op": op, "status": resp.StatusCode, "took": time.Since(start)}).Debug("[GATEWAY] request done")
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s: http %d", ErrUnreachable, op, resp.StatusCode)
	}
	return body, nil
}

func (c *HTTPClient) CreatePay(ctx context.Context, amount int64, reference string) (*CreateResult, error) {
	params := url.Values{}
	params.Set("amount", strconv.FormatInt(amount, 10))
	params.Set("ref", reference)
	body, err := c.get(ctx, "create_pay", params)
	if err != nil {
		return nil, err
	}
	var out createPayResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: create_pay: bad response: %v", ErrUnreachable, err)
	}
	if out.Status != "success" || out.PayID == "" {
		return nil, &RejectedError{Msg: out.Msg}
	}
	return &CreateResult{IntentID: out.PayID, Raw: string(body)}, nil
}

func (c *HTTPClient) DetailPay(ctx context.Context, intentID string) (*DetailResult, error) {
	params := url.Values{}
	params.Set("payid", intentID)
	body, err := c.get(ctx, "detail_pay", params)
	if err != nil {
		return nil, err
	}
	var out detailPayResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: detail_pay: bad response: %v", ErrUnreachable, err)
	}
	if out.Status != "success" {
		return nil, &RejectedError{Msg: out.Msg}
	}
	return &DetailResult{AmountDue: out.Amount, QRImage: out.QRCode, TimeLeft: out.TimeLeft}, nil
}

func (c *HTTPClient) Confirm(ctx context.Context, intentID string) (*ConfirmResult, error) {
	params := url.Values{}
	params.Set("payid", intentID)
	body, err := c.get(ctx, "confirm", params)
	if err != nil {
		return nil, err
	}
	var out confirmResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: confirm: bad response: %v", ErrUnreachable, err)
	}
	switch out.Status {
	case "success":
		return &ConfirmResult{Confirmed: true, Reference: out.Ref, Amount: out.Amount}, nil
	case "wait":
		return &ConfirmResult{Confirmed: false}, nil
	default:
		return nil, &RejectedError{Msg: out.Msg}
	}
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"ngozi_back_end/internal/models"
)

// Client encapsule la passerelle de paiement Pesapal (cartes + mobile money).
// Le flux est en deux temps : obtention d'un token courte durée, puis
// soumission de l'ordre de paiement portant la référence d'idempotence.
// Le client ne persiste RIEN, la ligne Payment est créée par l'appelant
// uniquement après un Initiate réussi.
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	IPNSecret      string
	HTTP           *http.Client
}

// AuthError : échec d'obtention du token d'accès (transitoire, retryable).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("échec authentification passerelle: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// OrderError : échec de soumission de l'ordre de paiement (transitoire, retryable).
type OrderError struct {
	Err error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("échec soumission ordre de paiement: %v", e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// New construit le client depuis l'environnement, avec un timeout borné
// pour ne jamais bloquer un checkout sur une passerelle lente.
func New() *Client {
	base := os.Getenv("PESAPAL_BASE_URL")
	if base == "" {
		base = "https://pay.pesapal.com/v3"
	}
	return &Client{
		BaseURL:        base,
		ConsumerKey:    os.Getenv("PESAPAL_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("PESAPAL_CONSUMER_SECRET"),
		IPNSecret:      os.Getenv("PESAPAL_WEBHOOK_SECRET"),
		HTTP:           &http.Client{Timeout: 15 * time.Second},
	}
}

type InitiateInput struct {
	Amount      float64
	Currency    string
	Description string
	Email       string
	Phone       string
	Reference   string
	CallbackURL string
	Provider    models.PaymentProvider
	Metadata    map[string]string
}

type InitiateResult struct {
	PaymentURL string
	TrackingID string
	Raw        json.RawMessage
}

type tokenResponse struct {
	Token   string `json:"token"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type submitResponse struct {
	OrderTrackingID string `json:"order_tracking_id"`
	RedirectURL     string `json:"redirect_url"`
	Status          string `json:"status"`
	Error           *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Initiate soumet un ordre de paiement à la passerelle.
// Toute erreur de token interrompt l'appel complet (AuthError), toute
// erreur de soumission remonte en OrderError, aucun état partiel.
func (c *Client) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	token, err := c.requestToken(ctx)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	body := map[string]interface{}{
		"id":           in.Reference,
		"amount":       in.Amount,
		"currency":     in.Currency,
		"description":  in.Description,
		"callback_url": in.CallbackURL,
		"channel":      string(in.Provider),
		"billing_address": map[string]string{
			"email_address": in.Email,
			"phone_number":  in.Phone,
		},
	}
	if len(in.Metadata) > 0 {
		body["metadata"] = in.Metadata
	}

	raw, err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", token, body)
	if err != nil {
		return nil, &OrderError{Err: err}
	}

	var resp submitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &OrderError{Err: fmt.Errorf("réponse passerelle illisible: %w", err)}
	}
	if resp.Error != nil {
		return nil, &OrderError{Err: fmt.Errorf("passerelle: %s (%s)", resp.Error.Message, resp.Error.Code)}
	}
	if resp.RedirectURL == "" {
		return nil, &OrderError{Err: fmt.Errorf("réponse passerelle sans URL de paiement")}
	}

	return &InitiateResult{
		PaymentURL: resp.RedirectURL,
		TrackingID: resp.OrderTrackingID,
		Raw:        raw,
	}, nil
}

func (c *Client) requestToken(ctx context.Context) (string, error) {
	raw, err := c.post(ctx, "/api/Auth/RequestToken", "", map[string]string{
		"consumer_key":    c.ConsumerKey,
		"consumer_secret": c.ConsumerSecret,
	})
	if err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("réponse token illisible: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("token absent de la réponse (status=%s, message=%s)", resp.Status, resp.Message)
	}
	return resp.Token, nil
}

func (c *Client) post(ctx context.Context, path, bearer string, body interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", res.StatusCode, string(raw))
	}
	return raw, nil
}

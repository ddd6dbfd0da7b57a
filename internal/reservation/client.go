package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/umutugur/rezzy-core/internal/draft"
	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
)

// Client talks to the reservation service over HTTP+JSON. It holds no state
// beyond its configuration; reservation status is server-authoritative and
// every response is re-parsed at the boundary.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a Client for the given base URL. A nil httpClient gets a
// default with a 15 second timeout. token may be empty for unauthenticated
// deployments.
func NewClient(baseURL, token string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     log,
	}
}

// Create submits a completed draft and returns the server's reservation.
// An incomplete draft is rejected before any network call; the server
// remains authoritative for pricing and availability.
func (c *Client) Create(ctx context.Context, d *draft.Draft) (*models.Reservation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	body := models.CreateReservationRequest{
		RestaurantID: d.RestaurantID(),
		DateTimeISO:  d.DateTimeISO(),
		PartySize:    d.PartySize(),
		Selections:   d.Selections(),
	}
	if userID, err := UserIDFromToken(c.token); err == nil {
		body.UserID = userID
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/reservations", body)
	if err != nil {
		return nil, err
	}
	// Resubmitting the same draft must not create a second reservation.
	req.Header.Set("X-Idempotency-Key", d.ID())

	var reservation models.Reservation
	if err := c.do(req, &reservation); err != nil {
		c.logger.LogReservation("CREATE", d.RestaurantID(), fmt.Sprintf("create failed: %v", err))
		return nil, err
	}

	c.logger.LogReservation("CREATE", reservation.ID, fmt.Sprintf("created with status %s, total %.2f", reservation.Status, reservation.TotalPrice))
	return &reservation, nil
}

// Fetch returns the current server copy of one reservation. Idempotent;
// this is the poller's tick operation.
func (c *Client) Fetch(ctx context.Context, id string) (*models.Reservation, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/reservations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var reservation models.Reservation
	if err := c.do(req, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Cancel requests the pending→cancelled transition. If the server-side
// status already advanced, a ConflictError is returned; the local copy is
// never silently overwritten.
func (c *Client) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	path := "/restaurants/reservations/" + url.PathEscape(id) + "/status"
	req, err := c.newJSONRequest(ctx, http.MethodPut, path, models.StatusUpdateRequest{Status: models.StatusCancelled})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reservation service error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		conflict := &ConflictError{ReservationID: id}
		var current struct {
			Status string `json:"status"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&current) == nil {
			if status, err := models.ParseStatus(current.Status); err == nil {
				conflict.Status = status
			}
		}
		c.logger.LogReservation("CANCEL", id, fmt.Sprintf("rejected: %v", conflict))
		return nil, conflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transportError(resp)
	}

	var reservation models.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&reservation); err != nil {
		return nil, fmt.Errorf("failed to decode cancel response: %w", err)
	}
	c.logger.LogReservation("CANCEL", id, "cancelled")
	return &reservation, nil
}

// UploadReceipt posts a receipt file as multipart form data. A 404 from the
// primary route means this deployment only has the legacy route, so the
// upload is retried there once. Any other non-2xx is a hard failure.
func (c *Client) UploadReceipt(ctx context.Context, id, filename string, file io.Reader) (*models.ReceiptResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("receipt", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read receipt file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	primary := "/reservations/" + url.PathEscape(id) + "/receipt"
	legacy := "/restaurants/reservations/" + url.PathEscape(id) + "/receipt"

	resp, err := c.postMultipart(ctx, primary, writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		c.logger.LogReservation("RECEIPT", id, "primary receipt route missing, retrying legacy route")
		resp, err = c.postMultipart(ctx, legacy, writer.FormDataContentType(), buf.Bytes())
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transportError(resp)
	}

	var receipt models.ReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt response: %w", err)
	}
	c.logger.LogReservation("RECEIPT", id, fmt.Sprintf("uploaded: %s", receipt.ReceiptURL))
	return &receipt, nil
}

// CheckInByQR sends the 4-tuple (plus optional arrived count) to the server.
func (c *Client) CheckInByQR(ctx context.Context, qr models.QRCheckInRequest) (*models.CheckInResult, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/reservations/checkin", qr)
	if err != nil {
		return nil, err
	}

	var result models.CheckInResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckInManual checks in by reservation id without a QR payload.
func (c *Client) CheckInManual(ctx context.Context, id string, arrivedCount *int) (*models.CheckInResult, error) {
	path := "/reservations/" + url.PathEscape(id) + "/checkin-manual"
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, models.ManualCheckInRequest{ArrivedCount: arrivedCount})
	if err != nil {
		return nil, err
	}

	var result models.CheckInResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateArrivedCount corrects the arrived count after check-in.
func (c *Client) UpdateArrivedCount(ctx context.Context, id string, arrivedCount int) (*models.CheckInResult, error) {
	path := "/reservations/" + url.PathEscape(id) + "/arrived-count"
	req, err := c.newJSONRequest(ctx, http.MethodPatch, path, models.ArrivedCountRequest{ArrivedCount: arrivedCount})
	if err != nil {
		return nil, err
	}

	var result models.CheckInResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ---------------- transport plumbing ----------------

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) postMultipart(ctx context.Context, path, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reservation service error: %w", err)
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reservation service error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transportError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func transportError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &TransportError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

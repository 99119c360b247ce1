// Package client is a typed client for the famtree REST API. Every call
// returns (value, error); API failures are *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/famtree/server/models"
)

const (
	API_PREFIX      = "/api/v1"
	DEFAULT_TIMEOUT = 30 * time.Second
)

// APIError is a non 2xx response from the API. Message is empty when the
// response carried no error envelope.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.Status)
	}
	return fmt.Sprintf("famtree api: %d %s", e.Status, message)
}

type PaginatedList[T any] struct {
	Items  []T           `json:"items"`
	Paging models.Paging `json:"paging"`
}

type envelope struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	token      string
	language   string
	httpClient *http.Client

	Families      *FamilyService
	Members       *Service[models.Member]
	Relationships *Service[models.Relationship]
	Events        *Service[models.Event]
	EventMembers  *Service[models.EventMember]
	FamilyMedia   *MediaService
	MemberFaces   *Service[models.MemberFace]
	VoiceProfiles *Service[models.VoiceProfile]
	MemoryItems   *Service[models.MemoryItem]
	MemberStories *Service[models.MemberStory]
}

type Option func(*Client)

// WithToken sends token as a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLanguage sets Accept-Language, which picks the language of API error messages.
func WithLanguage(language string) Option {
	return func(c *Client) { c.language = language }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DEFAULT_TIMEOUT},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Families = &FamilyService{Service: newService[models.Family](c, "/families")}
	c.Members = newService[models.Member](c, "/members")
	c.Relationships = newService[models.Relationship](c, "/relationships")
	c.Events = newService[models.Event](c, "/events")
	c.EventMembers = newService[models.EventMember](c, "/event-members")
	c.FamilyMedia = &MediaService{Service: newService[models.FamilyMedia](c, "/family-media")}
	c.MemberFaces = newService[models.MemberFace](c, "/member-faces")
	c.VoiceProfiles = newService[models.VoiceProfile](c, "/voice-profiles")
	c.MemoryItems = newService[models.MemoryItem](c, "/memory-items")
	c.MemberStories = newService[models.MemberStory](c, "/member-stories")

	return c
}

// do sends a JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + API_PREFIX + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%v %v: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	payload := envelope{}
	decodeErr := json.NewDecoder(res.Body).Decode(&payload)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newAPIError(res.StatusCode, payload)
	}

	if decodeErr != nil {
		return fmt.Errorf("decode %v %v response: %w", req.Method, req.URL.Path, decodeErr)
	}

	if out == nil || len(payload.Data) == 0 {
		return nil
	}

	return json.Unmarshal(payload.Data, out)
}

// ---------------------------------------------------------------------------------//
// Services
// --------------------------------------------------------------------------------//

// Service is the CRUD surface of one API resource.
type Service[T any] struct {
	client *Client
	path   string
}

func newService[T any](client *Client, path string) *Service[T] {
	return &Service[T]{client: client, path: path}
}

func (s *Service[T]) Search(ctx context.Context, opts models.ListOptions) (*PaginatedList[T], error) {
	list := &PaginatedList[T]{}
	err := s.client.do(ctx, http.MethodGet, s.path, listQuery(opts), nil, list)
	if err != nil {
		return nil, err
	}

	if list.Items == nil {
		list.Items = []T{}
	}
	return list, nil
}

func (s *Service[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	item := new(T)
	err := s.client.do(ctx, http.MethodGet, s.itemPath(id), nil, nil, item)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service[T]) Add(ctx context.Context, item *T) (*T, error) {
	created := new(T)
	err := s.client.do(ctx, http.MethodPost, s.path, nil, item, created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the updatable fields of record id with item.
func (s *Service[T]) Update(ctx context.Context, id uint, item *T) (*T, error) {
	updated := new(T)
	err := s.client.do(ctx, http.MethodPut, s.itemPath(id), nil, item, updated)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service[T]) Delete(ctx context.Context, id uint) error {
	return s.client.do(ctx, http.MethodDelete, s.itemPath(id), nil, nil, nil)
}

func (s *Service[T]) itemPath(id uint) string {
	return s.path + "/" + strconv.FormatUint(uint64(id), 10)
}

type FamilyService struct {
	*Service[models.Family]
}

func (s *FamilyService) Tree(ctx context.Context, id uint) (*models.FamilyTree, error) {
	tree := &models.FamilyTree{}
	err := s.client.do(ctx, http.MethodGet, s.itemPath(id)+"/tree", nil, nil, tree)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

type MediaService struct {
	*Service[models.FamilyMedia]
}

// Upload sends content as a new media file of family familyID.
func (s *MediaService) Upload(ctx context.Context, familyID uint, fileName, description string, content io.Reader) (*models.FamilyMedia, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	writer.WriteField("family_id", strconv.FormatUint(uint64(familyID), 10))
	writer.WriteField("description", description)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}

	if _, err = io.Copy(part, content); err != nil {
		return nil, err
	}

	if err = writer.Close(); err != nil {
		return nil, err
	}

	req, err := s.client.newRequest(ctx, http.MethodPost, s.path, nil, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	media := &models.FamilyMedia{}
	if err = s.client.send(req, media); err != nil {
		return nil, err
	}
	return media, nil
}

// Content streams the stored bytes of media id. Callers close the reader.
func (s *MediaService) Content(ctx context.Context, id uint) (io.ReadCloser, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, s.itemPath(id)+"/content", nil, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%v %v: %w", req.Method, req.URL.Path, err)
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()

		payload := envelope{}
		json.NewDecoder(res.Body).Decode(&payload)
		return nil, newAPIError(res.StatusCode, payload)
	}

	return res.Body, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func newAPIError(status int, payload envelope) *APIError {
	return &APIError{Status: status, Message: strings.Join(payload.Errors, "; "), Errors: payload.Errors}
}

func listQuery(opts models.ListOptions) url.Values {
	query := url.Values{}

	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.ItemsPerPage > 0 {
		query.Set("items_per_page", strconv.Itoa(opts.ItemsPerPage))
	}
	if opts.SortBy != "" {
		query.Set("sort_by", opts.SortBy)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	for column, value := range opts.Filters {
		if value == "" || models.IsListOptionParam(column) {
			continue
		}
		query.Set(column, value)
	}

	return query
}

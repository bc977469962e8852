// Package jiraclient creates tracking issues in Jira for new development
// requests. The integration is fire-and-forget: callers log failures and
// never let them affect the triggering operation.
package jiraclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config carries the Jira connection settings, typically read from the
// environment (JIRA_EMAIL, JIRA_API_TOKEN, JIRA_DOMAIN, JIRA_PROJECT_KEY).
type Config struct {
	Email      string
	APIToken   string
	Domain     string
	ProjectKey string
	IssueType  string
}

// Configured reports whether the integration can be used.
func (c Config) Configured() bool {
	return c.Email != "" && c.APIToken != "" && c.Domain != "" && c.ProjectKey != ""
}

// Client talks to the Jira Cloud REST API v3.
type Client struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Jira client. baseURL overrides the domain-derived URL
// and exists for tests; pass "" in production.
func NewClient(cfg Config, baseURL string) *Client {
	if cfg.IssueType == "" {
		cfg.IssueType = "Task"
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s", cfg.Domain)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
	}
}

// TicketRequest is the issue to create for a new project.
type TicketRequest struct {
	Title        string
	Description  string
	Urgency      string
	Department   string
	ImpactScore  int
	ContactName  string
	ContactEmail string
}

type issuePayload struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     projectRef  `json:"project"`
	Summary     string      `json:"summary"`
	Description adfDocument `json:"description"`
	IssueType   namedRef    `json:"issuetype"`
	Priority    namedRef    `json:"priority"`
}

type projectRef struct {
	Key string `json:"key"`
}

type namedRef struct {
	Name string `json:"name"`
}

// adfDocument is the minimal Atlassian Document Format body Jira v3 expects.
type adfDocument struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Content []adfText `json:"content,omitempty"`
}

type adfText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func urgencyToPriority(urgency string) string {
	switch urgency {
	case "high":
		return "High"
	case "medium":
		return "Medium"
	case "low":
		return "Low"
	}
	return "Medium"
}

func buildDescription(req TicketRequest) adfDocument {
	content := []adfNode{
		{Type: "paragraph", Content: []adfText{{Type: "text", Text: req.Description}}},
	}
	if req.ContactName != "" {
		contact := req.ContactName
		if req.ContactEmail != "" {
			contact = fmt.Sprintf("%s (%s)", contact, req.ContactEmail)
		}
		content = append(content,
			adfNode{Type: "rule"},
			adfNode{Type: "paragraph", Content: []adfText{{Type: "text", Text: "Contact: " + contact}}},
		)
	}
	return adfDocument{Type: "doc", Version: 1, Content: content}
}

// CreateTicket creates an issue and returns its key.
func (c *Client) CreateTicket(ctx context.Context, req TicketRequest) (string, error) {
	if !c.cfg.Configured() {
		return "", fmt.Errorf("jira integration not configured")
	}

	payload := issuePayload{
		Fields: issueFields{
			Project:     projectRef{Key: c.cfg.ProjectKey},
			Summary:     req.Title,
			Description: buildDescription(req),
			IssueType:   namedRef{Name: c.cfg.IssueType},
			Priority:    namedRef{Name: urgencyToPriority(req.Urgency)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode issue payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build issue request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to create issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("jira returned status %d: %s", resp.StatusCode, string(detail))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode issue response: %w", err)
	}
	return created.Key, nil
}

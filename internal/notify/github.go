package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v60/github"
)

// IssueNotifier files a GitHub issue for each halted stage so the
// failure lands in the team's normal triage queue.
type IssueNotifier struct {
	client *gh.Client
	owner  string
	repo   string
	labels []string
}

// NewIssueNotifier creates a notifier targeting repo in owner/name
// format. A token is required.
func NewIssueNotifier(token, repo string, labels []string) (*IssueNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repo %q (expected owner/name)", repo)
	}

	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
	}
	return &IssueNotifier{
		client: gh.NewClient(httpClient),
		owner:  owner,
		repo:   name,
		labels: labels,
	}, nil
}

// tokenTransport adds Bearer token auth to HTTP requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

func (n *IssueNotifier) NotifyHalt(ctx context.Context, report HaltReport) error {
	title := fmt.Sprintf("Stage halted: %s (%d attempts)", report.Stage, report.Attempts)
	body := issueBody(report)

	issueReq := &gh.IssueRequest{
		Title: &title,
		Body:  &body,
	}
	if len(n.labels) > 0 {
		labels := append([]string(nil), n.labels...)
		issueReq.Labels = &labels
	}

	_, _, err := n.client.Issues.Create(ctx, n.owner, n.repo, issueReq)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func issueBody(report HaltReport) string {
	var b strings.Builder
	if report.Workflow != "" {
		fmt.Fprintf(&b, "**Workflow:** %s\n", report.Workflow)
	}
	fmt.Fprintf(&b, "**Stage:** %s\n", report.Stage)
	fmt.Fprintf(&b, "**Producer:** %s\n", report.Producer)
	fmt.Fprintf(&b, "**Attempts:** %d\n", report.Attempts)
	fmt.Fprintf(&b, "**Halted at:** %s\n\n", report.When.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "```\n%s\n```\n", report.Internal)
	return b.String()
}

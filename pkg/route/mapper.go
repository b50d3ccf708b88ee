// Package route translates inbound REST paths into upstream Jira call
// shapes. Two path dialects are supported and treated identically beyond the
// version segment: the older "/rest/api/2" prefix and the "/rest/api/latest"
// prefix the IDE integration uses.
package route

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/issuebridge/issuebridge/pkg/domain"
)

// Operation identifies a supported logical operation. Values double as
// metric labels.
type Operation string

const (
	OpServerInfo        Operation = "server_info"
	OpSearch            Operation = "search"
	OpIssueGet          Operation = "issue_get"
	OpIssueUpdate       Operation = "issue_update"
	OpIssueCreate       Operation = "issue_create"
	OpTransitionsList   Operation = "transitions_list"
	OpTransitionExecute Operation = "transition_execute"
	OpProjectList       Operation = "project_list"
	OpProjectGet        Operation = "project_get"
	OpHealth            Operation = "health"
)

// Supported dialect prefixes.
const (
	DialectV2     = "/rest/api/2"
	DialectLatest = "/rest/api/latest"
)

// searchTarget is the upstream search endpoint. The versioned search routes
// are deprecated upstream, so both inbound search shapes normalize onto it.
const searchTarget = "/rest/api/3/search/jql"

// Mapping pairs the recognized operation with the upstream call to execute.
// OpHealth is synthetic: it carries no call and triggers a reachability
// probe instead of a forward.
type Mapping struct {
	Operation Operation
	Call      domain.OutboundCall
}

// Map translates an inbound verb/path/query/body into exactly one upstream
// call shape. Unknown paths or verbs fail with UnsupportedRoute; a
// transition-execute body without a transition id fails with a validation
// error before any upstream call is attempted.
func Map(method, path string, query url.Values, body []byte) (Mapping, error) {
	dialect, rest, ok := splitDialect(path)
	if !ok {
		return Mapping{}, unsupported(method, path)
	}

	segments := splitSegments(rest)

	switch {
	case match(segments, "serverInfo"):
		if method != http.MethodGet {
			return Mapping{}, unsupported(method, path)
		}
		return mapping(OpServerInfo, method, dialect+"/serverInfo", query, nil), nil

	case match(segments, "search") || match(segments, "search", "jql"):
		if method != http.MethodGet {
			return Mapping{}, unsupported(method, path)
		}
		// Query parameters (jql, startAt, maxResults, fields) pass through
		// unchanged.
		return mapping(OpSearch, method, searchTarget, query, nil), nil

	case match(segments, "issue"):
		if method != http.MethodPost {
			return Mapping{}, unsupported(method, path)
		}
		return mapping(OpIssueCreate, method, dialect+"/issue", nil, body), nil

	case match(segments, "issue", "*"):
		key := segments[1]
		switch method {
		case http.MethodGet:
			return mapping(OpIssueGet, method, dialect+"/issue/"+key, query, nil), nil
		case http.MethodPut:
			return mapping(OpIssueUpdate, method, dialect+"/issue/"+key, nil, body), nil
		default:
			return Mapping{}, unsupported(method, path)
		}

	case match(segments, "issue", "*", "transitions"):
		key := segments[1]
		switch method {
		case http.MethodGet:
			return mapping(OpTransitionsList, method, dialect+"/issue/"+key+"/transitions", nil, nil), nil
		case http.MethodPost:
			if err := validateTransitionBody(body); err != nil {
				return Mapping{}, err
			}
			return mapping(OpTransitionExecute, method, dialect+"/issue/"+key+"/transitions", nil, body), nil
		default:
			return Mapping{}, unsupported(method, path)
		}

	case match(segments, "project"):
		if method != http.MethodGet {
			return Mapping{}, unsupported(method, path)
		}
		return mapping(OpProjectList, method, dialect+"/project", nil, nil), nil

	case match(segments, "project", "*"):
		if method != http.MethodGet {
			return Mapping{}, unsupported(method, path)
		}
		return mapping(OpProjectGet, method, dialect+"/project/"+segments[1], nil, nil), nil

	case match(segments, "health"):
		if method != http.MethodGet {
			return Mapping{}, unsupported(method, path)
		}
		return Mapping{Operation: OpHealth}, nil

	default:
		return Mapping{}, unsupported(method, path)
	}
}

func mapping(op Operation, method, target string, query url.Values, body []byte) Mapping {
	return Mapping{
		Operation: op,
		Call: domain.OutboundCall{
			Method:  method,
			Path:    target,
			Query:   query,
			Headers: make(http.Header),
			Body:    body,
		},
	}
}

func unsupported(method, path string) error {
	return domain.NewClassifiedError(domain.KindUnsupportedRoute,
		"no mapping for %s %s", method, path)
}

func splitDialect(path string) (string, string, bool) {
	for _, dialect := range []string{DialectV2, DialectLatest} {
		if rest, found := strings.CutPrefix(path, dialect); found {
			if rest == "" || strings.HasPrefix(rest, "/") {
				return dialect, rest, true
			}
		}
	}
	return "", "", false
}

func splitSegments(rest string) []string {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// match compares path segments against a pattern where "*" accepts any
// single non-empty segment.
func match(segments []string, pattern ...string) bool {
	if len(segments) != len(pattern) {
		return false
	}
	for i, want := range pattern {
		if want == "*" {
			continue
		}
		if segments[i] != want {
			return false
		}
	}
	return true
}

type transitionRequest struct {
	Transition struct {
		ID string `json:"id"`
	} `json:"transition"`
}

func validateTransitionBody(body []byte) error {
	var req transitionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.NewClassifiedError(domain.KindInvalidRequest,
			"transition request body is not valid JSON")
	}
	if req.Transition.ID == "" {
		return domain.NewClassifiedError(domain.KindInvalidRequest,
			"transition id is required")
	}
	return nil
}

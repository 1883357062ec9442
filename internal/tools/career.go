package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const tavilySearchURL = "https://api.tavily.com/search"

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

var careerTips = map[string]string{
	"technology": "Build a portfolio of real projects; employers weigh shipped work over certificates.",
	"medicine":   "Shadowing and volunteering hours matter as much as grades for medical programs.",
	"business":   "Internships and networking open more doors than coursework alone.",
	"law":        "Strong writing samples and moot-court experience stand out on applications.",
	"education":  "Classroom assistant experience is the fastest way to test the fit.",
}

func tipFor(field string) string {
	if tip, ok := careerTips[strings.ToLower(field)]; ok {
		return tip
	}
	return "Talk to people already working in the field; informational interviews beat job boards."
}

// CareerInsightsFor queries Tavily for current market information about a
// field. Without an API key it returns a mock payload so the chat flow
// stays usable in development.
func (r *Registry) CareerInsightsFor(ctx context.Context, field string) Result {
	if r.tavilyKey == "" {
		return Result{
			Success: false,
			Error:   "TAVILY_API_KEY is not configured",
			Insights: &CareerInsights{
				Field:   field,
				Summary: fmt.Sprintf("Career insights for %s are unavailable right now (search is not configured). General guidance: research job postings in your area, identify the most requested skills, and build evidence of them.", field),
				Tip:     tipFor(field),
			},
		}
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        r.tavilyKey,
		Query:         fmt.Sprintf("%s career prospects job market trends 2025 salary", field),
		SearchDepth:   "advanced",
		IncludeAnswer: true,
		MaxResults:    3,
	})
	if err != nil {
		return failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tavilyURL, bytes.NewReader(body))
	if err != nil {
		return failure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return failure(fmt.Errorf("career search failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Success: false, Error: fmt.Sprintf("career search returned status %d", resp.StatusCode)}
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return failure(fmt.Errorf("decoding career search response: %w", err))
	}

	insights := &CareerInsights{
		Field:   field,
		Summary: tr.Answer,
		Tip:     tipFor(field),
	}
	for i, res := range tr.Results {
		if i >= 3 {
			break
		}
		insights.Results = append(insights.Results, CareerResult{
			Title:   res.Title,
			URL:     res.URL,
			Snippet: res.Content,
		})
	}

	return Result{Success: true, Insights: insights}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/research-triage/pkg/types"
)

// assessmentPromptTmpl instructs the model to score one candidate strictly
// on the visible preview. Web sources additionally get a domain line and a
// credibility rubric; papers skip credibility entirely.
var assessmentPromptTmpl = template.Must(template.New("assessment").Parse(`You are a research assistant conducting a STRICT and CRITICAL assessment.
Your task is to assess the following search result for its usefulness.

RESEARCH QUERY: "{{.QueryText}}"

SEARCH RESULT TO ASSESS:
- Source Type: {{.Category}}
- Title: {{.Title}}
- Content Preview/Abstract: {{.Snippet}}
{{- if .Domain}}
- Domain: {{.Domain}}
{{- end}}

CRITICAL ASSESSMENT INSTRUCTIONS:
- Be EXTREMELY STRICT and CRITICAL in your evaluation
- Base your relevance assessment ONLY on what is visible in the "Content Preview/Abstract" section
- DO NOT assume any content beyond what is explicitly shown in the preview
- If the preview doesn't clearly and explicitly demonstrate relevance to the query, score it low
- Be skeptical - err on the side of lower scores rather than higher ones

ASSESSMENT CRITERIA (rate each on a 1-5 scale, where 5 is excellent):

1. RELEVANCE SCORE: How directly related is the VISIBLE CONTENT to the RESEARCH QUERY?
   - 5: Preview explicitly addresses the query with specific, detailed examples
   - 3: Preview shows some connection but lacks specificity
   - 1: Preview shows no clear relevance to the query
{{if .Credibility}}
2. CREDIBILITY SCORE: How trustworthy and authoritative is this source?
   - 5: Academic/government domains, major research institutions
   - 4: Established companies, well-known industry publications
   - 3: Professional industry websites with clear authorship
   - 2: Personal blogs or lesser-known sources with identifiable authors
   - 1: Anonymous sources, suspicious domains, or unclear authorship
{{else}}
2. CREDIBILITY SCORE: This is an academic paper. Always set credibility_score to null.
{{end}}
3. SOLIDITY SCORE: How substantial and well-written is the visible content?
   - 5: Comprehensive, technically detailed preview with specific information
   - 3: Adequate information but lacking depth or clarity
   - 1: Superficial, unclear, or very poorly written preview

4. OVERALL USEFULNESS SCORE: How valuable would this be for research on the RESEARCH QUERY?
   - 5: Essential resource based on preview, clearly addresses research needs
   - 3: Moderately useful, some potential value visible in preview
   - 1: Not useful for research based on what's shown in preview

JUSTIFICATION: Provide a brief (1-2 sentence) explanation focusing on why the visible preview does or does not match the research query.

Respond with a JSON object with keys "relevance_score", "credibility_score", "solidity_score", "overall_usefulness_score", and "llm_justification". Do not include any text outside the JSON object.`))

// promptData is the template input for one assessment.
type promptData struct {
	QueryText   string
	Category    types.SourceCategory
	Title       string
	Snippet     string
	Domain      string
	Credibility bool
}

// BuildPrompt renders the assessment prompt for one candidate.
func BuildPrompt(req Request) (string, error) {
	data := promptData{
		QueryText:   req.QueryText,
		Category:    req.Category,
		Title:       orDefault(req.Title, "No title available"),
		Snippet:     orDefault(req.Snippet, "No content preview available"),
		Domain:      req.Domain,
		Credibility: req.Category != types.CategoryPaper,
	}

	var buf bytes.Buffer
	if err := assessmentPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

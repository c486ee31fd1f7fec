package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenarioctl/internal/api"
)

// Document is the content of a JSON report.
type Document struct {
	Job     api.Meta     `json:"job"`
	Results []api.Result `json:"results"`
}

// WriteJSON saves the result trees of a job to a timestamped JSON file in dir
// and returns its path.
func WriteJSON(dir string, meta api.Meta, trees []api.Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("scenarioctl-report-%s-%s.json", meta.ID, timestamp))

	data, err := json.MarshalIndent(Document{Job: meta, Results: trees}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

type junitNode struct {
	XMLName  xml.Name
	Name     string        `xml:"name,attr"`
	Time     float64       `xml:"time,attr"`
	FileName string        `xml:"fileName,attr,omitempty"`
	Outcome  api.Outcome   `xml:"outcome,attr"`
	Tests    int           `xml:"tests,attr"`
	Success  int           `xml:"success,attr"`
	Skipped  int           `xml:"skipped,attr"`
	Failures int           `xml:"failures,attr"`
	Errors   int           `xml:"errors,attr"`
	Problem  *junitProblem `xml:",omitempty"`
	Children []junitNode
}

type junitProblem struct {
	XMLName xml.Name
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type junitSuites struct {
	XMLName xml.Name `xml:"testsuites"`
	Suites  []junitNode
}

// WriteJUnit saves each result tree as JUnit XML in dir, one file per tree
// named after its top-level item, and returns the paths. Suites become
// testsuite elements, every other item a testcase.
func WriteJUnit(dir string, trees []api.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var paths []string
	for _, tree := range trees {
		data, err := xml.MarshalIndent(junitSuites{Suites: []junitNode{junitTree(tree)}}, "", "  ")
		if err != nil {
			return paths, fmt.Errorf("failed to marshal %s to JUnit: %w", tree.Subject.Name, err)
		}
		path := filepath.Join(dir, fileName(tree.Subject.Name)+".xml")
		if err := os.WriteFile(path, append([]byte(xml.Header), data...), 0644); err != nil {
			return paths, fmt.Errorf("failed to write report file: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func junitTree(r api.Result) junitNode {
	element := "testcase"
	if r.Subject.Type == "suite" {
		element = "testsuite"
	}
	node := junitNode{
		XMLName:  xml.Name{Local: element},
		Name:     r.Subject.Name,
		Time:     r.DurationMs / 1000,
		FileName: r.Subject.SourceFile,
		Outcome:  r.Outcome,
	}

	if element == "testcase" && (r.Outcome == api.OutcomeFailure || r.Outcome == api.OutcomeError) {
		trace := r.Failures
		if r.Outcome == api.OutcomeError {
			trace = r.Errors
		}
		node.Problem = &junitProblem{
			XMLName: xml.Name{Local: strings.ToLower(string(r.Outcome))},
			Message: r.Message,
			Text: fmt.Sprintf("In file %s - description: %s\nStacktrace: %s\n",
				r.Subject.SourceFile, r.Subject.Description, strings.Join(trace, "\n")),
		}
	}

	switch r.Outcome {
	case api.OutcomeSuccess:
		node.Success++
	case api.OutcomeSkipped:
		node.Skipped++
	case api.OutcomeFailure:
		node.Failures++
	case api.OutcomeError:
		node.Errors++
	}
	for _, n := range r.Nested {
		child := junitTree(n)
		node.Success += child.Success
		node.Skipped += child.Skipped
		node.Failures += child.Failures
		node.Errors += child.Errors
		node.Children = append(node.Children, child)
	}
	node.Tests = node.Success + node.Skipped + node.Failures + node.Errors
	return node
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

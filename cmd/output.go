package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/s0up4200/aitl/aitl"
)

// printer writes records in the configured output format. JSON and YAML render
// the payload exactly as the service returned it; table shows a summary.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

func (p *printer) jobs(jobs []*aitl.Job) error {
	raws := make([]json.RawMessage, 0, len(jobs))
	for _, job := range jobs {
		raws = append(raws, job.Raw)
	}
	return p.render(raws, true, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tSTATUS\tTEMPLATE\tLOCATION\tCREATED\tFINISHED")
		for _, job := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				job.Name, job.Status, dash(job.TemplateName), job.Location,
				formatTime(job.CreatedAt), formatTime(job.FinishedAt))
		}
	})
}

func (p *printer) job(job *aitl.Job) error {
	if p.format == "table" {
		return p.jobs([]*aitl.Job{job})
	}
	return p.render([]json.RawMessage{job.Raw}, false, nil)
}

func (p *printer) templates(templates []*aitl.Template) error {
	raws := make([]json.RawMessage, 0, len(templates))
	for _, t := range templates {
		raws = append(raws, t.Raw)
	}
	return p.render(raws, true, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tLOCATION\tREGIONS\tVM SIZE\tCONCURRENCY")
		for _, t := range templates {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				t.Name, t.Location,
				dash(strings.Join(t.Spec.Region, ",")),
				dash(strings.Join(t.Spec.VMSize, ",")),
				strconv.Itoa(t.Spec.Concurrency))
		}
	})
}

func (p *printer) template(t *aitl.Template) error {
	if p.format == "table" {
		return p.templates([]*aitl.Template{t})
	}
	return p.render([]json.RawMessage{t.Raw}, false, nil)
}

func (p *printer) render(raws []json.RawMessage, list bool, table func(*tabwriter.Writer)) error {
	switch p.format {
	case "yaml":
		return p.writeYAML(raws, list)
	case "table":
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return p.writeJSON(raws, list)
	}
}

func (p *printer) writeJSON(raws []json.RawMessage, list bool) error {
	var v any = raws
	if !list {
		v = raws[0]
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(out))
	return err
}

func (p *printer) writeYAML(raws []json.RawMessage, list bool) error {
	nodes := make([]*yaml.Node, 0, len(raws))
	for _, raw := range raws {
		node, err := yamlNode(raw)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}

	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: nodes}
	if !list {
		out = nodes[0]
	}

	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to format YAML output: %w", err)
	}
	return enc.Close()
}

// yamlNode parses a JSON payload as YAML, keeping key order, and switches it to block style
func yamlNode(raw json.RawMessage) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert payload to YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	node := doc.Content[0]
	blockStyle(node)
	return node, nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

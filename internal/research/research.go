// Package research wires the multi-source research workflow: three data
// agents fan out from START, each appending one finding, and a synthesizer
// formats them into the final report.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/Himanshu040604/PregelFlow/pkg/collaborator"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// State fields.
const (
	FieldTopic   = "topic"
	FieldResults = "results"
	FieldReport  = "final_report"
	FieldTopics  = "topics"
)

// Node ids.
const (
	NodeWeather     = "weather_agent"
	NodeNews        = "news_agent"
	NodeStock       = "stock_agent"
	NodeSynthesizer = "synthesizer"
)

const reportWidth = 50

// Schema declares the research state. Only the topic history survives
// between turns.
func Schema() *schema.Schema {
	return schema.MustNew(
		schema.Field{Name: FieldTopic, Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: FieldResults, Type: schema.String(), Policy: schema.Append},
		schema.Field{Name: FieldReport, Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: FieldTopics, Type: schema.String(), Policy: schema.Append, Scope: schema.ScopeSession},
	)
}

// Collaborators are the data sources consulted by the agents.
type Collaborators struct {
	Weather collaborator.Collaborator
	News    collaborator.Collaborator
	Stock   collaborator.Collaborator
}

// Graph builds the research graph over the collaborators.
func Graph(c Collaborators) (*graph.Graph, error) {
	if c.Weather == nil || c.News == nil || c.Stock == nil {
		return nil, fmt.Errorf("research graph needs weather, news and stock collaborators")
	}
	b := graph.New(Schema())
	b.Node(NodeWeather, agent(c.Weather)).Writes(FieldResults).Optional().From(graph.START).To(NodeSynthesizer)
	b.Node(NodeNews, agent(c.News)).Writes(FieldResults).Optional().From(graph.START).To(NodeSynthesizer)
	b.Node(NodeStock, agent(c.Stock)).Writes(FieldResults).Optional().From(graph.START).To(NodeSynthesizer)
	b.Node(NodeSynthesizer, synthesize).Writes(FieldReport, FieldTopics).To(graph.END)
	return b.Build()
}

// Seed is the caller input for one turn.
func Seed(topic string) domain.Update {
	return domain.Update{FieldTopic: topic}
}

// agent asks src about the current topic and appends the answer.
func agent(src collaborator.Collaborator) graph.NodeFunc {
	return func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		return domain.Update{FieldResults: []string{src.Fetch(ctx, s.String(FieldTopic))}}, nil
	}
}

func synthesize(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
	topic := s.String(FieldTopic)
	return domain.Update{
		FieldReport: Report(topic, s.Strings(FieldResults)),
		FieldTopics: topic,
	}, nil
}

// Report formats the intelligence report: a title rule, then every finding
// followed by a separator line.
func Report(topic string, results []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nINTELLIGENCE REPORT: '%s'\n", strings.ToUpper(topic))
	sb.WriteString(strings.Repeat("=", reportWidth) + "\n")
	for _, r := range results {
		sb.WriteString(r + "\n")
		sb.WriteString(strings.Repeat("-", reportWidth) + "\n")
	}
	return sb.String()
}

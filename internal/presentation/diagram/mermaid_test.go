package diagram_test

import (
	"strings"
	"testing"

	"github.com/aretw0/grapher/internal/presentation/diagram"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shotDocument(t *testing.T) *graph.Document {
	t.Helper()
	doc := graph.NewDocument()
	shot, err := doc.AddNode(domain.NewNode("Shot010", domain.NodeTypeModul), graph.NoParent, graph.Append)
	require.NoError(t, err)
	load, err := doc.AddNode(domain.NewNode("load", domain.NodeTypePyData), shot, graph.Append)
	require.NoError(t, err)
	loop, err := doc.AddNode(domain.NewNode("frames", domain.NodeTypeLoop), shot, graph.Append)
	require.NoError(t, err)
	gate := domain.NewNode("gate", domain.NodeTypeCondition)
	gate.Enabled = false
	_, err = doc.AddNode(gate, graph.NoParent, graph.Append)
	require.NoError(t, err)
	_, err = doc.Connect(load, domain.PlugOutputFile, loop, domain.PlugInputFile)
	require.NoError(t, err)
	return doc
}

func TestGenerateMermaid(t *testing.T) {
	out := diagram.GenerateMermaid(shotDocument(t), nil)

	for _, want := range []string{
		"graph TD\n",
		"    subgraph n0_group[\"Shot010\"]\n",
		"        n0[[\"Shot010\"]]\n",
		"        n1[/\"load\"/]\n",
		"        n2{{\"frames\"}}\n",
		"    end\n",
		"    n3{\"gate\"}\n",
		"    n1 -- \"outputFile → inputFile\" --> n2\n",
		"    class n3 disabled;\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Overlay")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := diagram.GenerateMermaid(shotDocument(t), &diagram.Overlay{
		Done:    []string{"Shot010/load", "Shot010/load", "missing"},
		Current: "Shot010/frames",
	})

	assert.Equal(t, 1, strings.Count(out, "class n1 done;"))
	assert.Contains(t, out, "class n2 current;")
}

func TestGenerateMermaid_EscapesQuotes(t *testing.T) {
	doc := graph.NewDocument()
	_, err := doc.AddNode(domain.NewNode(`say "hi"`, domain.NodeTypeCmdData), graph.NoParent, graph.Append)
	require.NoError(t, err)

	assert.Contains(t, diagram.GenerateMermaid(doc, nil), `n0[/"say #quot;hi#quot;"/]`)
}

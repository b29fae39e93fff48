package codec_test

import (
	"strings"
	"testing"

	"github.com/aretw0/grapher/pkg/codec"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument(t *testing.T) *graph.Document {
	t.Helper()
	doc := graph.NewDocument()
	doc.Comment = "<p>Shot 010 \"lighting\"\npass</p>"
	doc.AddVariable(graph.Append, domain.Variable{Enabled: true, Label: "root", Operator: domain.OpAssign, Value: "/prod", Comment: "studio root"})
	doc.AddVariable(graph.Append, domain.Variable{Enabled: false, Label: "frames", Operator: domain.OpNum, Value: "12"})
	doc.AddVariable(graph.Append, domain.Variable{Enabled: true, Label: "root", Operator: domain.OpAppend, Value: "/seq01"})

	shot, err := doc.AddNode(domain.NewNode("Shot010", domain.NodeTypeModul), graph.NoParent, graph.Append)
	require.NoError(t, err)

	render := domain.NewNode("render", domain.NodeTypeCmdData)
	render.Script = "python(\"execfile('x')\");\n"
	render.ExecFlag = true
	render.Versions[2] = "lookdev take"
	render.Version = 2
	renderID, err := doc.AddNode(render, shot, graph.Append)
	require.NoError(t, err)

	loop := domain.NewNode("frames", domain.NodeTypeLoop)
	loop.Expanded = true
	loopID, err := doc.AddNode(loop, graph.NoParent, graph.Append)
	require.NoError(t, err)

	off := domain.NewNode("Shot010", domain.NodeTypePyData)
	off.Enabled = false
	offID, err := doc.AddNode(off, shot, 0)
	require.NoError(t, err)

	cond := domain.NewNode("gate", domain.NodeTypeCondition)
	cond.Versions = nil
	condID, err := doc.AddNode(cond, loopID, graph.Append)
	require.NoError(t, err)

	_, err = doc.Connect(renderID, domain.PlugOutputFile, loopID, domain.PlugInputFile)
	require.NoError(t, err)
	_, err = doc.Connect(offID, domain.PlugOutputFile, condID, domain.PlugInputData)
	require.NoError(t, err)
	_, err = doc.Connect(renderID, domain.PlugOutputFile, condID, domain.PlugInputFile)
	require.NoError(t, err)
	return doc
}

func TestMarshal_RoundTrip(t *testing.T) {
	doc := sampleDocument(t)

	data, err := codec.Marshal(doc)
	require.NoError(t, err)

	loaded, err := codec.Unmarshal(data)
	require.NoError(t, err)

	assert.True(t, graph.Equal(doc, loaded), "round trip must be structurally equal:\n%s", data)

	// Re-encoding the loaded document is stable.
	again, err := codec.Marshal(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestMarshal_Layout(t *testing.T) {
	data, err := codec.Marshal(sampleDocument(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "# "))
	assert.True(t, strings.HasPrefix(lines[1], "comment = "))
	assert.True(t, strings.HasPrefix(lines[2], "variables = ["))
	assert.True(t, strings.HasPrefix(lines[3], "connections = ["))
	assert.True(t, strings.HasPrefix(lines[4], "tree = {"))
	assert.Contains(t, lines[4], `"_order":["Shot010","Shot010/Shot010_1","Shot010/render","frames","frames/gate"]`)
}

func TestUnmarshal_Empty(t *testing.T) {
	data, err := codec.Marshal(graph.NewDocument())
	require.NoError(t, err)

	doc, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Tree.Len())
	assert.Empty(t, doc.Variables)
	assert.Empty(t, doc.Connections)
}

func TestMarshal_OrderKeyNotANodeName(t *testing.T) {
	doc := graph.NewDocument()
	_, err := doc.AddNode(domain.NewNode(codec.OrderKey, domain.NodeTypeModul), graph.NoParent, graph.Append)
	assert.ErrorIs(t, err, domain.ErrInvalidNodeName)

	a, err := doc.AddNode(domain.NewNode("a", domain.NodeTypeModul), graph.NoParent, graph.Append)
	require.NoError(t, err)
	_, err = doc.Tree.Rename(a, codec.OrderKey)
	assert.ErrorIs(t, err, domain.ErrInvalidNodeName)

	_, err = doc.AddNode(domain.NewNode(codec.OrderKey+"_1", domain.NodeTypeModul), graph.NoParent, graph.Append)
	require.NoError(t, err)

	data, err := codec.Marshal(doc)
	require.NoError(t, err)
	loaded, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, graph.Equal(doc, loaded))
	_, ok := loaded.Tree.FindByName(codec.OrderKey + "_1")
	assert.True(t, ok)
}

func TestMarshal_AfterRefusedTypeChange(t *testing.T) {
	doc := graph.NewDocument()
	a, err := doc.AddNode(domain.NewNode("a", domain.NodeTypePyData), graph.NoParent, graph.Append)
	require.NoError(t, err)
	b, err := doc.AddNode(domain.NewNode("b", domain.NodeTypeLoop), graph.NoParent, graph.Append)
	require.NoError(t, err)
	_, err = doc.Connect(a, domain.PlugOutputFile, b, domain.PlugInputData)
	require.NoError(t, err)

	assert.Error(t, doc.Tree.Update(b, func(n *domain.Node) { n.Type = domain.NodeTypeModul }))
	assert.Error(t, doc.UpdateNode(b, func(n *domain.Node) { n.Type = domain.NodeTypeModul }))

	data, err := codec.Marshal(doc)
	require.NoError(t, err)
	loaded, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, graph.Equal(doc, loaded))
}

func TestUnmarshal_Malformed(t *testing.T) {
	const okVars = `variables = []`
	const okConns = `connections = []`
	const okComment = `comment = ""`
	const okTree = `tree = {"_order":["a"],"a":{"name":"a","type":"loop","parent":"","enabled":true}}`

	tests := []struct {
		name string
		data string
	}{
		{"not an assignment", "comment\n"},
		{"unknown identifier", okComment + "\nfoo = 1\n" + okVars + "\n" + okConns + "\n" + okTree},
		{"duplicate identifier", okComment + "\n" + okComment + "\n" + okVars + "\n" + okConns + "\n" + okTree},
		{"missing tree", okComment + "\n" + okVars + "\n" + okConns},
		{"bad json", okComment + "\nvariables = [\n" + okConns + "\n" + okTree},
		{"trailing literal", okComment + "\nvariables = [] []\n" + okConns + "\n" + okTree},
		{"comment not string", "comment = 3\n" + okVars + "\n" + okConns + "\n" + okTree},
		{"bad operator", okComment + "\n" + `variables = [{"enabled":true,"label":"x","operator":"*","value":"1"}]` + "\n" + okConns + "\n" + okTree},
		{"wrong field type", okComment + "\n" + `variables = [{"enabled":"yes","label":"x","operator":"=","value":"1"}]` + "\n" + okConns + "\n" + okTree},
		{"tree without order", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"a":{"name":"a","type":"loop"}}`},
		{"order misses node", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"_order":[],"a":{"name":"a","type":"loop"}}`},
		{"unknown type", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"_order":["a"],"a":{"name":"a","type":"shader"}}`},
		{"dangling parent", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"_order":["b/a"],"b/a":{"name":"a","type":"loop","parent":"b"}}`},
		{"key mismatch", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"_order":["x"],"x":{"name":"a","type":"loop"}}`},
		{"duplicate name", okComment + "\n" + okVars + "\n" + okConns + "\n" + `tree = {"_order":["a","a/b","b"],"a":{"name":"a","type":"modul"},"a/b":{"name":"b","type":"modul","parent":"a"},"b":{"name":"b","type":"modul"}}`},
		{"dangling connection", okComment + "\n" + okVars + "\n" + `connections = [{"source":"z","sourcePlug":"outputFile","dest":"a","destPlug":"inputFile"}]` + "\n" + okTree},
		{"illegal connection", okComment + "\n" + okVars + "\n" + `connections = [{"source":"a","sourcePlug":"outputFile","dest":"a","destPlug":"inputFile"}]` + "\n" + okTree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := codec.Unmarshal([]byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrMalformedDocument)
			assert.Nil(t, doc, "malformed input must not yield a partial document")
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	data, err := codec.Encode("lock", codec.Assignment{Ident: "lock", Value: domain.LockInfo{User: "ana", Station: "ws-12", Date: "2026-10-17", Time: "10:00:00"}})
	require.NoError(t, err)

	var info domain.LockInfo
	require.NoError(t, codec.DecodeRecord(data, "lock", &info))
	assert.Equal(t, "ana", info.User)
	assert.Equal(t, "ws-12", info.Station)

	err = codec.DecodeRecord([]byte("marker = {}\n"), "lock", &info)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
	err = codec.DecodeRecord([]byte("# empty\n"), "lock", &info)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

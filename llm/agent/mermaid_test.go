package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologyRecorder_CapturesCompiledGraph(t *testing.T) {
	f := newRuntimeFixture(t, nil)

	edges := f.rt.Topology()
	require.NotEmpty(t, edges)

	assert.Equal(t, Edge{From: compose.START, To: NodeChatbot}, edges[0])
	assert.Equal(t, Edge{From: NodeRespond, To: compose.END}, edges[len(edges)-1])
	assert.Contains(t, edges, Edge{From: NodeChatbot, To: NodeTools, Conditional: true})
	assert.Contains(t, edges, Edge{From: NodeChatbot, To: NodeRespond, Conditional: true})
	assert.Contains(t, edges, Edge{From: NodeTools, To: NodeChatbot})
	assert.Len(t, edges, 5)

	// 返回的是副本
	edges[0].From = "mutated"
	assert.Equal(t, compose.START, f.rt.Topology()[0].From)
}

func TestTopologyRecorder_Empty(t *testing.T) {
	var r TopologyRecorder
	assert.Empty(t, r.Edges())

	r.OnFinish(context.Background(), nil)
	assert.Empty(t, r.Edges())
}

func TestDrawMermaid(t *testing.T) {
	f := newRuntimeFixture(t, nil)
	out := DrawMermaid(f.rt.Topology())

	assert.True(t, strings.Contains(out, "graph TD;"))
	assert.Contains(t, out, "__start__([<p>start</p>]):::first")
	assert.Contains(t, out, "__end__([<p>end</p>]):::last")
	assert.Contains(t, out, "__start__ --> chatbot;")
	assert.Contains(t, out, "chatbot -.-> tools;")
	assert.Contains(t, out, "chatbot -.-> respond;")
	assert.Contains(t, out, "tools --> chatbot;")
	assert.Contains(t, out, "respond --> __end__;")

	// 每个节点只声明一次
	assert.Equal(t, 1, strings.Count(out, "\tchatbot(chatbot)"))
}

func TestWriteMermaid(t *testing.T) {
	f := newRuntimeFixture(t, nil)
	edges := f.rt.Topology()

	path := filepath.Join(t.TempDir(), "out", "graph.mmd")
	require.NoError(t, WriteMermaid(path, edges))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DrawMermaid(edges), string(data))

	assert.Error(t, WriteMermaid(filepath.Join(t.TempDir(), "empty.mmd"), nil))
}

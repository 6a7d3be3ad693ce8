package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
setup:
  - op: account.create
    args: { firstName: Ada, lastName: Lovelace, email: ada@example.com }
flow:
  - op: account.get
    args: { id: account-1 }
    expect:
      result: { firstName: Ada }
assertions:
  - type: record
    kind: account
    id: account-1
    expect: { email: ada@example.com }
  - type: count
    kind: post
    filter: { field: userId, op: equals, value: account-1 }
    count: 0
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, engine.OpAccountCreate, scenario.Setup[0].Op)
	assert.Equal(t, "Ada", scenario.Setup[0].Args["firstName"])

	require.Len(t, scenario.Flow, 1)
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, "Ada", scenario.Flow[0].Expect.Result["firstName"])

	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, model.KindAccount, scenario.Assertions[0].Kind)
	require.NotNil(t, scenario.Assertions[1].Filter)
	assert.Equal(t, model.OpEquals, scenario.Assertions[1].Filter.Op)
	require.NotNil(t, scenario.Assertions[1].Count)
	assert.Equal(t, 0, *scenario.Assertions[1].Count)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(validScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: integrity}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: n
flow: [{op: account.list, args: {}}]
assertions: [{type: integrity}]
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			yaml: `
name: n
description: d
flow: []
assertions: [{type: integrity}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "no assertions",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown op",
			yaml: `
name: n
description: d
flow: [{op: account.explode, args: {}}]
assertions: [{type: integrity}]
`,
			wantErr: `flow[0]: unknown op "account.explode"`,
		},
		{
			name: "missing args",
			yaml: `
name: n
description: d
flow: [{op: account.list}]
assertions: [{type: integrity}]
`,
			wantErr: "flow[0]: args is required",
		},
		{
			name: "expect with both error and result",
			yaml: `
name: n
description: d
flow:
  - op: account.get
    args: {id: x}
    expect: {error: NOT_FOUND, result: {id: x}}
assertions: [{type: integrity}]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "expect in setup",
			yaml: `
name: n
description: d
setup:
  - op: account.get
    args: {id: x}
    expect: {error: NOT_FOUND}
flow: [{op: account.list, args: {}}]
assertions: [{type: integrity}]
`,
			wantErr: "expect is not allowed in setup",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown type "trace_contains"`,
		},
		{
			name: "unknown kind",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: absent, kind: comment, id: c-1}]
`,
			wantErr: `unknown kind "comment"`,
		},
		{
			name: "count without count",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: count, kind: post}]
`,
			wantErr: "count is required",
		},
		{
			name: "count with unknown filter field",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: count, kind: post, count: 0, filter: {field: ownerId, op: equals, value: a}}]
`,
			wantErr: `unknown filter field "ownerId"`,
		},
		{
			name: "journal without outcomes",
			yaml: `
name: n
description: d
flow: [{op: account.list, args: {}}]
assertions: [{type: journal, operation: account.create}]
`,
			wantErr: "outcomes is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOperations_Sorted(t *testing.T) {
	ops := Operations()
	assert.Contains(t, ops, engine.OpAccountDelete)
	assert.Contains(t, ops, OpIsSubscribed)
	assert.IsIncreasing(t, ops)
}

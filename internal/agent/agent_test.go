package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTask_Accessors(t *testing.T) {
	task := Task{
		"op":      "match_postings",
		"owner":   "u1",
		"limit":   float64(25),
		"count":   3,
		"score":   71.5,
		"dry_run": true,
		"nested":  map[string]interface{}{"a": "b"},
		"tags":    []interface{}{"go", "remote", 7},
	}

	assert.Equal(t, "match_postings", task.Op())
	assert.Equal(t, "u1", task.String("owner"))
	assert.Equal(t, "", task.String("missing"))
	assert.Equal(t, "fallback", task.StringOr("missing", "fallback"))
	assert.Equal(t, 25, task.Int("limit"))
	assert.Equal(t, 3, task.Int("count"))
	assert.Equal(t, 71.5, task.Float("score"))
	assert.True(t, task.Bool("dry_run"))
	assert.False(t, task.Bool("missing"))
	assert.Equal(t, map[string]interface{}{"a": "b"}, task.Map("nested"))
	assert.Equal(t, []string{"go", "remote"}, task.Strings("tags"))
}

func TestTask_CloneIsDeep(t *testing.T) {
	task := Task{
		"op": "x",
		"nested": map[string]interface{}{
			"list": []interface{}{"a"},
		},
	}

	clone := task.Clone()
	clone["op"] = "y"
	clone.Map("nested")["list"].([]interface{})[0] = "changed"

	assert.Equal(t, "x", task.Op())
	assert.Equal(t, "a", task.Map("nested")["list"].([]interface{})[0])
}

func TestResult_Failed(t *testing.T) {
	ok := &Result{Unit: "u", Op: "do_thing", Data: map[string]interface{}{}}
	bad := &Result{Unit: "u", Op: OpError, Data: map[string]interface{}{"error": "boom"}}

	assert.False(t, ok.Failed())
	assert.Equal(t, "", ok.ErrorMessage())
	assert.True(t, bad.Failed())
	assert.Equal(t, "boom", bad.ErrorMessage())
}

func TestBase_PerformDispatchesByOp(t *testing.T) {
	base := NewBase("echo", "echoes input", zap.NewNop())
	base.Handle("say", func(_ context.Context, task Task) (*Result, error) {
		return base.OK("say", map[string]interface{}{"text": task.String("text")}), nil
	})

	res, err := base.Perform(context.Background(), Task{"op": "say", "text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo", res.Unit)
	assert.Equal(t, "say", res.Op)
	assert.Equal(t, "hi", res.Data["text"])
}

func TestBase_PerformRejectsUnknownOp(t *testing.T) {
	base := NewBase("echo", "echoes input", zap.NewNop())
	base.Handle("say", func(_ context.Context, _ Task) (*Result, error) {
		return base.OK("say", nil), nil
	})

	res, err := base.Perform(context.Background(), Task{"op": "shout"})
	require.NoError(t, err, "unknown op is a domain failure, not a Go error")
	assert.True(t, res.Failed())
	assert.Equal(t, "shout", res.Data["requested_op"])

	res, err = base.Perform(context.Background(), Task{})
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "missing op", res.ErrorMessage())
}

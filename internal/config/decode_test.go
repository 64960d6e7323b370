package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type decodeTarget struct {
	Command string   `hcl:"command"`
	Paths   []string `hcl:"paths,optional"`
	Depth   int      `hcl:"depth,optional"`
	Shallow bool     `hcl:"shallow,optional"`
}

func TestDecodeArgs(t *testing.T) {
	t.Parallel()

	t.Run("decodes all supported field types", func(t *testing.T) {
		t.Parallel()
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{
			"command": cty.StringVal("make build"),
			"paths":   cty.ListVal([]cty.Value{cty.StringVal("target"), cty.StringVal("dist")}),
			"depth":   cty.NumberIntVal(3),
			"shallow": cty.True,
		}, &target)
		require.NoError(t, err)
		assert.Equal(t, "make build", target.Command)
		assert.Equal(t, []string{"target", "dist"}, target.Paths)
		assert.Equal(t, 3, target.Depth)
		assert.True(t, target.Shallow)
	})

	t.Run("accepts tuple values for list fields", func(t *testing.T) {
		t.Parallel()
		// HCL evaluates `paths = ["a", "b"]` to a tuple, not a list.
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{
			"command": cty.StringVal("x"),
			"paths":   cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		}, &target)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, target.Paths)
	})

	t.Run("missing required argument fails", func(t *testing.T) {
		t.Parallel()
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{}, &target)
		assert.ErrorContains(t, err, `missing required argument "command"`)
	})

	t.Run("missing optional argument is fine", func(t *testing.T) {
		t.Parallel()
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{"command": cty.StringVal("x")}, &target)
		require.NoError(t, err)
		assert.Empty(t, target.Paths)
		assert.Zero(t, target.Depth)
	})

	t.Run("unknown argument fails", func(t *testing.T) {
		t.Parallel()
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{
			"command": cty.StringVal("x"),
			"comand":  cty.StringVal("typo"),
		}, &target)
		assert.ErrorContains(t, err, `unknown argument "comand"`)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		t.Parallel()
		var target decodeTarget
		err := DecodeArgs(map[string]cty.Value{"command": cty.NumberIntVal(42), "depth": cty.StringVal("three")}, &target)
		assert.Error(t, err)
	})

	t.Run("non-pointer target fails", func(t *testing.T) {
		t.Parallel()
		err := DecodeArgs(nil, decodeTarget{})
		assert.ErrorContains(t, err, "pointer to struct")
	})
}

// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package llpc

import (
	"errors"
	"testing"

	"github.com/gogpu/naga/ir"
)

// srcTestModule builds a module exercising every handle kind the linker
// must remap: nested types, composite constants, an initialized global, and
// a cross-function call.
func srcTestModule() *ir.Module {
	u32 := ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	size := uint32(4)
	m := &ir.Module{
		Types: []ir.Type{
			{Inner: u32},
			{Inner: ir.ArrayType{Base: 0, Size: ir.ArraySize{Constant: &size}, Stride: 4}},
		},
		Constants: []ir.Constant{
			{Name: "one", Type: 0, Value: ir.ScalarValue{Bits: 1, Kind: ir.ScalarUint}},
			{Name: "ones", Type: 1, Value: ir.CompositeValue{Components: []ir.ConstantHandle{0, 0, 0, 0}}},
		},
	}
	init := ir.ConstantHandle(1)
	m.GlobalVariables = []ir.GlobalVariable{
		{Name: "table", Space: ir.SpaceUniform, Type: 1, Init: &init},
	}

	helper := ir.Function{
		Name:   "helper",
		Result: &ir.FunctionResult{Type: 0},
		Expressions: []ir.Expression{
			{Kind: ir.ExprConstant{Constant: 0}},
		},
		ExpressionTypes: []ir.TypeResolution{
			{Value: u32},
		},
		Body: ir.Block{{Kind: ir.StmtReturn{}}},
	}

	result := ir.ExpressionHandle(1)
	caller := ir.Function{
		Name: "main",
		Expressions: []ir.Expression{
			{Kind: ir.ExprGlobalVariable{Variable: 0}},
			{Kind: ir.ExprCallResult{Function: 0}},
		},
		ExpressionTypes: []ir.TypeResolution{
			{Value: ir.PointerType{Base: 1, Space: ir.SpaceUniform}},
			{Value: u32},
		},
		Body: ir.Block{
			{Kind: ir.StmtCall{Function: 0, Result: &result}},
			{Kind: ir.StmtReturn{}},
		},
	}

	m.Functions = []ir.Function{helper, caller}
	m.EntryPoints = []ir.EntryPoint{{Name: "main", Stage: ir.StageVertex, Function: 1}}
	return m
}

func TestLinkModuleRemapsHandles(t *testing.T) {
	types := ir.NewTypeRegistry()
	dst := &ir.Module{}

	// Pre-populate the destination so every offset is nonzero.
	types.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarFloat, Width: 4})
	dst.Functions = append(dst.Functions, ir.Function{Name: "existing"})
	dst.Constants = append(dst.Constants, ir.Constant{
		Name: "zero", Type: 0, Value: ir.ScalarValue{Bits: 0, Kind: ir.ScalarFloat},
	})
	dst.GlobalVariables = append(dst.GlobalVariables, ir.GlobalVariable{Name: "g", Type: 0})

	src := srcTestModule()
	off, err := linkModule(dst, types, src)
	if err != nil {
		t.Fatalf("linkModule() error = %v", err)
	}

	if off.fn != 1 || off.constant != 1 || off.global != 1 {
		t.Fatalf("offsets = %+v", off)
	}

	// The linked array type must point at the linked scalar, not at the
	// pre-existing float.
	arrayHandle := off.types[1]
	dst.Types = types.GetTypes()
	arr, ok := dst.Types[arrayHandle].Inner.(ir.ArrayType)
	if !ok {
		t.Fatalf("type %d is %T, want array", arrayHandle, dst.Types[arrayHandle].Inner)
	}
	if arr.Base != off.types[0] {
		t.Errorf("array base = %d, want %d", arr.Base, off.types[0])
	}

	composite, ok := dst.Constants[2].Value.(ir.CompositeValue)
	if !ok {
		t.Fatalf("constant 2 value is %T, want composite", dst.Constants[2].Value)
	}
	for i, c := range composite.Components {
		if c != 1 {
			t.Errorf("component %d = %d, want 1", i, c)
		}
	}

	global := dst.GlobalVariables[1]
	if global.Init == nil || *global.Init != 2 {
		t.Errorf("global init = %v, want 2", global.Init)
	}
	if global.Type != arrayHandle {
		t.Errorf("global type = %d, want %d", global.Type, arrayHandle)
	}

	caller := dst.Functions[2]
	call, ok := caller.Body[0].Kind.(ir.StmtCall)
	if !ok {
		t.Fatalf("statement 0 is %T, want call", caller.Body[0].Kind)
	}
	if call.Function != 1 {
		t.Errorf("call target = %d, want 1", call.Function)
	}
	if result, ok := caller.Expressions[1].Kind.(ir.ExprCallResult); !ok || result.Function != 1 {
		t.Errorf("call result expression = %+v", caller.Expressions[1].Kind)
	}
	if global, ok := caller.Expressions[0].Kind.(ir.ExprGlobalVariable); !ok || global.Variable != 1 {
		t.Errorf("global expression = %+v", caller.Expressions[0].Kind)
	}

	// Expression types resolve against the linked type handles.
	ptr, ok := caller.ExpressionTypes[0].Value.(ir.PointerType)
	if !ok {
		t.Fatalf("expression type 0 = %+v", caller.ExpressionTypes[0])
	}
	if ptr.Base != arrayHandle {
		t.Errorf("pointer base = %d, want %d", ptr.Base, arrayHandle)
	}
}

func TestLinkModuleSharesTypes(t *testing.T) {
	types := ir.NewTypeRegistry()
	dst := &ir.Module{}

	first := srcTestModule()
	second := srcTestModule()

	off1, err := linkModule(dst, types, first)
	if err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	off2, err := linkModule(dst, types, second)
	if err != nil {
		t.Fatalf("second link failed: %v", err)
	}

	// Identical types deduplicate through the shared registry.
	if off1.types[0] != off2.types[0] || off1.types[1] != off2.types[1] {
		t.Errorf("type handles differ across links: %v vs %v", off1.types, off2.types)
	}
	if off2.fn != 2 {
		t.Errorf("second function offset = %d, want 2", off2.fn)
	}
}

func TestLinkModuleForwardTypeReference(t *testing.T) {
	size := uint32(2)
	src := &ir.Module{
		Types: []ir.Type{
			{Inner: ir.ArrayType{Base: 1, Size: ir.ArraySize{Constant: &size}, Stride: 4}},
			{Inner: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}},
		},
	}
	_, err := linkModule(&ir.Module{}, ir.NewTypeRegistry(), src)
	if !errors.Is(err, ErrLink) {
		t.Fatalf("error = %v, want ErrLink", err)
	}
}

func TestEntryPointOf(t *testing.T) {
	if _, err := entryPointOf(&ir.Module{}); !errors.Is(err, ErrLink) {
		t.Errorf("no entry points: error = %v, want ErrLink", err)
	}

	broken := &ir.Module{
		EntryPoints: []ir.EntryPoint{{Name: "main", Function: 3}},
	}
	if _, err := entryPointOf(broken); !errors.Is(err, ErrLink) {
		t.Errorf("dangling entry: error = %v, want ErrLink", err)
	}

	good := srcTestModule()
	h, err := entryPointOf(good)
	if err != nil {
		t.Fatalf("entryPointOf() error = %v", err)
	}
	if h != 1 {
		t.Errorf("entry = %d, want 1", h)
	}
}

// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package llpc

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// linkOffsets records where a linked module's pools landed in the
// destination module.
type linkOffsets struct {
	fn       uint32
	global   uint32
	constant uint32
	types    []ir.TypeHandle
}

func (off *linkOffsets) mapType(h ir.TypeHandle) (ir.TypeHandle, error) {
	if int(h) >= len(off.types) {
		return 0, fmt.Errorf("%w: type handle %d out of range", ErrLink, h)
	}
	return off.types[h], nil
}

// entryPointOf returns the handle of a stage program's entry function.
func entryPointOf(m *ir.Module) (ir.FunctionHandle, error) {
	if len(m.EntryPoints) == 0 {
		return 0, fmt.Errorf("%w: stage module has no entry point", ErrLink)
	}
	h := m.EntryPoints[0].Function
	if int(h) >= len(m.Functions) {
		return 0, fmt.Errorf("%w: entry point references function %d of %d", ErrLink, h, len(m.Functions))
	}
	return h, nil
}

// linkModule appends src's types, constants, globals, and functions to dst,
// remapping every module-scope handle. Types deduplicate through the shared
// registry; the caller refreshes dst.Types from it afterwards. src must not
// be used again.
func linkModule(dst *ir.Module, types *ir.TypeRegistry, src *ir.Module) (linkOffsets, error) {
	off := linkOffsets{
		fn:       uint32(len(dst.Functions)),
		global:   uint32(len(dst.GlobalVariables)),
		constant: uint32(len(dst.Constants)),
		types:    make([]ir.TypeHandle, len(src.Types)),
	}

	// Types first; everything else refers to them. A type may only refer
	// to earlier types, which the remap below relies on.
	for i, ty := range src.Types {
		inner, err := remapTypeInner(ty.Inner, off.types[:i])
		if err != nil {
			return off, fmt.Errorf("type %d: %w", i, err)
		}
		off.types[i] = types.GetOrCreate(ty.Name, inner)
	}

	for i, c := range src.Constants {
		mapped, err := off.mapType(c.Type)
		if err != nil {
			return off, fmt.Errorf("constant %d: %w", i, err)
		}
		value := c.Value
		if composite, ok := c.Value.(ir.CompositeValue); ok {
			components := make([]ir.ConstantHandle, len(composite.Components))
			for j, comp := range composite.Components {
				if int(comp) >= len(src.Constants) {
					return off, fmt.Errorf("%w: constant %d component %d out of range", ErrLink, i, j)
				}
				components[j] = ir.ConstantHandle(off.constant) + comp
			}
			value = ir.CompositeValue{Components: components}
		}
		dst.Constants = append(dst.Constants, ir.Constant{Name: c.Name, Type: mapped, Value: value})
	}

	for i, g := range src.GlobalVariables {
		mapped, err := off.mapType(g.Type)
		if err != nil {
			return off, fmt.Errorf("global %d: %w", i, err)
		}
		init := g.Init
		if init != nil {
			if int(*init) >= len(src.Constants) {
				return off, fmt.Errorf("%w: global %d initializer out of range", ErrLink, i)
			}
			h := ir.ConstantHandle(off.constant) + *init
			init = &h
		}
		dst.GlobalVariables = append(dst.GlobalVariables, ir.GlobalVariable{
			Name:    g.Name,
			Space:   g.Space,
			Binding: g.Binding,
			Type:    mapped,
			Init:    init,
		})
	}

	for i := range src.Functions {
		fn, err := off.remapFunction(&src.Functions[i], src)
		if err != nil {
			return off, fmt.Errorf("function %d: %w", i, err)
		}
		dst.Functions = append(dst.Functions, fn)
	}

	return off, nil
}

// remapTypeInner rewrites nested type handles using the handles already
// mapped for preceding types.
func remapTypeInner(inner ir.TypeInner, mapped []ir.TypeHandle) (ir.TypeInner, error) {
	nested := func(h ir.TypeHandle) (ir.TypeHandle, error) {
		if int(h) >= len(mapped) {
			return 0, fmt.Errorf("%w: forward type reference %d", ErrLink, h)
		}
		return mapped[h], nil
	}

	switch t := inner.(type) {
	case ir.ArrayType:
		base, err := nested(t.Base)
		if err != nil {
			return nil, err
		}
		t.Base = base
		return t, nil
	case ir.PointerType:
		base, err := nested(t.Base)
		if err != nil {
			return nil, err
		}
		t.Base = base
		return t, nil
	case ir.StructType:
		members := make([]ir.StructMember, len(t.Members))
		for i, m := range t.Members {
			base, err := nested(m.Type)
			if err != nil {
				return nil, err
			}
			m.Type = base
			members[i] = m
		}
		t.Members = members
		return t, nil
	default:
		return inner, nil
	}
}

func (off *linkOffsets) remapFunction(src *ir.Function, srcMod *ir.Module) (ir.Function, error) {
	fn := ir.Function{Name: src.Name}

	fn.Arguments = make([]ir.FunctionArgument, len(src.Arguments))
	for i, a := range src.Arguments {
		mapped, err := off.mapType(a.Type)
		if err != nil {
			return fn, err
		}
		a.Type = mapped
		fn.Arguments[i] = a
	}

	if src.Result != nil {
		mapped, err := off.mapType(src.Result.Type)
		if err != nil {
			return fn, err
		}
		fn.Result = &ir.FunctionResult{Type: mapped, Binding: src.Result.Binding}
	}

	fn.LocalVars = make([]ir.LocalVariable, len(src.LocalVars))
	for i, lv := range src.LocalVars {
		mapped, err := off.mapType(lv.Type)
		if err != nil {
			return fn, err
		}
		lv.Type = mapped
		fn.LocalVars[i] = lv
	}

	fn.Expressions = make([]ir.Expression, len(src.Expressions))
	for i, e := range src.Expressions {
		kind, err := off.remapExpression(e.Kind, srcMod)
		if err != nil {
			return fn, fmt.Errorf("expression %d: %w", i, err)
		}
		fn.Expressions[i] = ir.Expression{Kind: kind}
	}

	fn.ExpressionTypes = make([]ir.TypeResolution, len(src.ExpressionTypes))
	for i, tr := range src.ExpressionTypes {
		mapped, err := off.remapTypeResolution(tr)
		if err != nil {
			return fn, fmt.Errorf("expression type %d: %w", i, err)
		}
		fn.ExpressionTypes[i] = mapped
	}

	body, err := off.remapBlock(src.Body, srcMod)
	if err != nil {
		return fn, err
	}
	fn.Body = body

	return fn, nil
}

func (off *linkOffsets) remapTypeResolution(tr ir.TypeResolution) (ir.TypeResolution, error) {
	if tr.Handle != nil {
		mapped, err := off.mapType(*tr.Handle)
		if err != nil {
			return tr, err
		}
		return ir.TypeResolution{Handle: &mapped}, nil
	}
	if tr.Value != nil {
		inner, err := remapTypeInner(tr.Value, off.types)
		if err != nil {
			return tr, err
		}
		return ir.TypeResolution{Value: inner}, nil
	}
	return tr, nil
}

// remapExpression rewrites module-scope handles inside an expression.
// Expression-to-expression references are function local and stay as they
// are.
func (off *linkOffsets) remapExpression(kind ir.ExpressionKind, srcMod *ir.Module) (ir.ExpressionKind, error) {
	switch e := kind.(type) {
	case ir.ExprConstant:
		if int(e.Constant) >= len(srcMod.Constants) {
			return nil, fmt.Errorf("%w: constant handle %d out of range", ErrLink, e.Constant)
		}
		e.Constant += ir.ConstantHandle(off.constant)
		return e, nil
	case ir.ExprZeroValue:
		mapped, err := off.mapType(e.Type)
		if err != nil {
			return nil, err
		}
		e.Type = mapped
		return e, nil
	case ir.ExprCompose:
		mapped, err := off.mapType(e.Type)
		if err != nil {
			return nil, err
		}
		e.Type = mapped
		return e, nil
	case ir.ExprGlobalVariable:
		if int(e.Variable) >= len(srcMod.GlobalVariables) {
			return nil, fmt.Errorf("%w: global handle %d out of range", ErrLink, e.Variable)
		}
		e.Variable += ir.GlobalVariableHandle(off.global)
		return e, nil
	case ir.ExprCallResult:
		if int(e.Function) >= len(srcMod.Functions) {
			return nil, fmt.Errorf("%w: function handle %d out of range", ErrLink, e.Function)
		}
		e.Function += ir.FunctionHandle(off.fn)
		return e, nil
	default:
		return kind, nil
	}
}

func (off *linkOffsets) remapBlock(block ir.Block, srcMod *ir.Module) (ir.Block, error) {
	out := make(ir.Block, len(block))
	for i, stmt := range block {
		kind, err := off.remapStatement(stmt.Kind, srcMod)
		if err != nil {
			return nil, err
		}
		out[i] = ir.Statement{Kind: kind}
	}
	return out, nil
}

func (off *linkOffsets) remapStatement(kind ir.StatementKind, srcMod *ir.Module) (ir.StatementKind, error) {
	switch s := kind.(type) {
	case ir.StmtBlock:
		inner, err := off.remapBlock(s.Block, srcMod)
		if err != nil {
			return nil, err
		}
		s.Block = inner
		return s, nil
	case ir.StmtIf:
		accept, err := off.remapBlock(s.Accept, srcMod)
		if err != nil {
			return nil, err
		}
		reject, err := off.remapBlock(s.Reject, srcMod)
		if err != nil {
			return nil, err
		}
		s.Accept = accept
		s.Reject = reject
		return s, nil
	case ir.StmtSwitch:
		cases := make([]ir.SwitchCase, len(s.Cases))
		for i, c := range s.Cases {
			body, err := off.remapBlock(c.Body, srcMod)
			if err != nil {
				return nil, err
			}
			c.Body = body
			cases[i] = c
		}
		s.Cases = cases
		return s, nil
	case ir.StmtLoop:
		body, err := off.remapBlock(s.Body, srcMod)
		if err != nil {
			return nil, err
		}
		continuing, err := off.remapBlock(s.Continuing, srcMod)
		if err != nil {
			return nil, err
		}
		s.Body = body
		s.Continuing = continuing
		return s, nil
	case ir.StmtCall:
		if int(s.Function) >= len(srcMod.Functions) {
			return nil, fmt.Errorf("%w: call to function %d out of range", ErrLink, s.Function)
		}
		s.Function += ir.FunctionHandle(off.fn)
		return s, nil
	default:
		return kind, nil
	}
}

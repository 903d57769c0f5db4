// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package llpc

import (
	"fmt"

	"github.com/gogpu/naga/ir"

	"github.com/npcdoom/xgl"
)

// Internal names given to linked stage entry functions. The merged entry
// point calls them; they are not exported as entry points themselves.
const (
	lsEntryName = "llpc.ls.main"
	hsEntryName = "llpc.hs.main"
	esEntryName = "llpc.es.main"
	gsEntryName = "llpc.gs.main"
)

// Wavefront intrinsics modeled as body-less function declarations, resolved
// by the hardware backend.
const (
	intrinsicInitExec = "llvm.amdgcn.init.exec"
	intrinsicMbcntLo  = "llvm.amdgcn.mbcnt.lo"
	intrinsicMbcntHi  = "llvm.amdgcn.mbcnt.hi"
	intrinsicBarrier  = "llvm.amdgcn.s.barrier"
)

// Special scalar-register system values heading a merged LS-HS entry point.
const (
	lsHsSysValueUserDataAddrLow = iota
	lsHsSysValueUserDataAddrHigh
	lsHsSysValueOffChipLdsBase
	lsHsSysValueMergedWaveInfo
	lsHsSysValueTfBufferBase
	lsHsSysValueSharedScratchOffset
	lsHsSysValueShaderAddrLow
	lsHsSysValueShaderAddrHigh

	lsHsSpecialSysValueCount
)

// Special scalar-register system values heading a merged ES-GS entry point.
const (
	esGsSysValueUserDataAddrLow = iota
	esGsSysValueUserDataAddrHigh
	esGsSysValueGsVsOffset
	esGsSysValueMergedWaveInfo
	esGsSysValueOffChipLdsBase
	esGsSysValueSharedScratchOffset
	esGsSysValueShaderAddrLow
	esGsSysValueShaderAddrHigh

	esGsSpecialSysValueCount
)

// Sub-field positions within the packed merged-wave-info system value.
const (
	waveInfoFirstStageCountShift  = 0
	waveInfoSecondStageCountShift = 8
	waveInfoGsWaveIDShift         = 16
	waveInfoCountBits             = 8
)

// HwStage names the hardware calling convention of a merged entry point.
type HwStage int

const (
	// HwStageHs is the merged LS-HS (vertex + tess-control) hardware stage.
	HwStageHs HwStage = iota
	// HwStageGs is the merged ES-GS (export + geometry) hardware stage.
	HwStageGs
)

func (s HwStage) String() string {
	switch s {
	case HwStageHs:
		return "hs"
	case HwStageGs:
		return "gs"
	}
	return "unknown"
}

// StageProgram is one compiled stage: a naga module with a single entry
// point, plus the stage's resolved register layout. Merging consumes the
// module; the program must not be reused afterwards.
type StageProgram struct {
	Stage    ShaderStage
	Module   *ir.Module
	IntfData *InterfaceData
}

func (p *StageProgram) take() (*ir.Module, error) {
	if p.Module == nil {
		return nil, fmt.Errorf("%w: %v program", ErrConsumed, p.Stage)
	}
	m := p.Module
	p.Module = nil
	return m, nil
}

// MergedShader is a synthesized hardware entry point combining one or two
// stage programs.
type MergedShader struct {
	Module *ir.Module
	Entry  ir.FunctionHandle

	// InRegMask marks which entry arguments live in scalar registers.
	InRegMask uint64

	HwStage HwStage
}

// Merger builds hardware merged shaders for a graphics pipeline.
type Merger struct {
	pipe *PipelineState
}

func NewMerger(pipe *PipelineState) *Merger {
	if pipe.HasStage(ShaderStageCompute) {
		panic("llpc: stage merging applies to graphics pipelines only")
	}
	return &Merger{pipe: pipe}
}

// stageRef is one side of a merge inside the generator.
type stageRef struct {
	present bool
	entry   ir.FunctionHandle
	intf    *InterfaceData
}

// BuildLsHsMergedShader links the LS (vertex) and HS (tess-control)
// programs into one module and synthesizes the merged hardware entry point.
// At least one of the two must be present. Both inputs are consumed.
func (m *Merger) BuildLsHsMergedShader(ls, hs *StageProgram) (*MergedShader, error) {
	if ls == nil && hs == nil {
		panic("llpc: LS-HS merge requires at least one stage")
	}

	merged := &ir.Module{}
	types := ir.NewTypeRegistry()

	lsRef, err := m.linkStage(merged, types, ls, lsEntryName, "LS", "LS-HS")
	if err != nil {
		return nil, err
	}
	hsRef, err := m.linkStage(merged, types, hs, hsEntryName, "HS", "LS-HS")
	if err != nil {
		return nil, err
	}

	g := &mergeBuild{pipe: m.pipe, mod: merged, types: types, intrinsics: map[string]ir.FunctionHandle{}}
	entry, inRegMask := g.generateLsHsEntryPoint(lsRef, hsRef)

	merged.Types = types.GetTypes()
	return &MergedShader{Module: merged, Entry: entry, InRegMask: inRegMask, HwStage: HwStageHs}, nil
}

// BuildEsGsMergedShader links the ES (vertex or tess-eval) and GS programs
// into one module and synthesizes the merged hardware entry point. The GS
// program must be present. Both inputs are consumed.
func (m *Merger) BuildEsGsMergedShader(es, gs *StageProgram) (*MergedShader, error) {
	if gs == nil {
		panic("llpc: ES-GS merge requires the geometry stage")
	}

	merged := &ir.Module{}
	types := ir.NewTypeRegistry()

	esRef, err := m.linkStage(merged, types, es, esEntryName, "ES", "ES-GS")
	if err != nil {
		return nil, err
	}
	gsRef, err := m.linkStage(merged, types, gs, gsEntryName, "GS", "ES-GS")
	if err != nil {
		return nil, err
	}

	g := &mergeBuild{pipe: m.pipe, mod: merged, types: types, intrinsics: map[string]ir.FunctionHandle{}}
	entry, inRegMask := g.generateEsGsEntryPoint(esRef, gsRef)

	merged.Types = types.GetTypes()
	return &MergedShader{Module: merged, Entry: entry, InRegMask: inRegMask, HwStage: HwStageGs}, nil
}

// linkStage consumes prog and links its module into merged, renaming the
// entry function to its internal name. A link failure aborts the merge:
// continuing with a partially linked module would produce a broken shader.
func (m *Merger) linkStage(
	merged *ir.Module,
	types *ir.TypeRegistry,
	prog *StageProgram,
	entryName, stageName, mergeName string,
) (stageRef, error) {
	if prog == nil {
		return stageRef{}, nil
	}
	src, err := prog.take()
	if err != nil {
		return stageRef{}, err
	}
	srcEntry, err := entryPointOf(src)
	if err != nil {
		xgl.Logger().Error("failed to link stage into merged shader",
			"stage", stageName, "merge", mergeName, "err", err)
		return stageRef{}, err
	}
	off, err := linkModule(merged, types, src)
	if err != nil {
		xgl.Logger().Error("failed to link stage into merged shader",
			"stage", stageName, "merge", mergeName, "err", err)
		return stageRef{}, err
	}
	entry := ir.FunctionHandle(off.fn) + srcEntry
	merged.Functions[entry].Name = entryName
	return stageRef{present: true, entry: entry, intf: prog.IntfData}, nil
}

// funcBuilder accumulates the expressions and body of one function under
// construction. Computed expressions are flushed as emit ranges into the
// block that first needs them.
type funcBuilder struct {
	fn   ir.Function
	mark int
}

func (b *funcBuilder) add(kind ir.ExpressionKind, ty ir.TypeResolution) ir.ExpressionHandle {
	h := ir.ExpressionHandle(len(b.fn.Expressions))
	b.fn.Expressions = append(b.fn.Expressions, ir.Expression{Kind: kind})
	b.fn.ExpressionTypes = append(b.fn.ExpressionTypes, ty)
	return h
}

func (b *funcBuilder) litU32(v uint32) ir.ExpressionHandle {
	return b.add(ir.Literal{Value: ir.LiteralU32(v)}, trU32())
}

func (b *funcBuilder) litI64(v int64) ir.ExpressionHandle {
	return b.add(ir.Literal{Value: ir.LiteralI64(v)},
		ir.TypeResolution{Value: ir.ScalarType{Kind: ir.ScalarSint, Width: 8}})
}

func (b *funcBuilder) argExpr(i int) ir.ExpressionHandle {
	h := b.fn.Arguments[i].Type
	return b.add(ir.ExprFunctionArgument{Index: uint32(i)}, ir.TypeResolution{Handle: &h})
}

// flush emits every expression appended since the previous flush into block.
func (b *funcBuilder) flush(block *ir.Block) {
	if b.mark < len(b.fn.Expressions) {
		*block = append(*block, ir.Statement{Kind: ir.StmtEmit{
			Range: ir.Range{Start: ir.ExpressionHandle(b.mark), End: ir.ExpressionHandle(len(b.fn.Expressions))},
		}})
	}
	b.mark = len(b.fn.Expressions)
}

// callVoid appends a call with no result.
func (b *funcBuilder) callVoid(block *ir.Block, fn ir.FunctionHandle, args []ir.ExpressionHandle) {
	b.flush(block)
	*block = append(*block, ir.Statement{Kind: ir.StmtCall{Function: fn, Arguments: args}})
}

// call appends a call and returns its result expression.
func (b *funcBuilder) call(
	block *ir.Block,
	fn ir.FunctionHandle,
	args []ir.ExpressionHandle,
	result ir.TypeResolution,
) ir.ExpressionHandle {
	b.flush(block)
	h := b.add(ir.ExprCallResult{Function: fn}, result)
	*block = append(*block, ir.Statement{Kind: ir.StmtCall{Function: fn, Arguments: args, Result: &h}})
	// Call results materialize through the call statement, never through
	// an emit range.
	b.mark = len(b.fn.Expressions)
	return h
}

func trU32() ir.TypeResolution {
	return ir.TypeResolution{Value: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}}
}

func trF32() ir.TypeResolution {
	return ir.TypeResolution{Value: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}
}

func trBool() ir.TypeResolution {
	return ir.TypeResolution{Value: ir.ScalarType{Kind: ir.ScalarBool, Width: 1}}
}

func trHandle(h ir.TypeHandle) ir.TypeResolution {
	return ir.TypeResolution{Handle: &h}
}

// mergeBuild holds the module-level state while one merged entry point is
// generated.
type mergeBuild struct {
	pipe       *PipelineState
	mod        *ir.Module
	types      *ir.TypeRegistry
	b          *funcBuilder
	intrinsics map[string]ir.FunctionHandle
}

// intrinsic returns (declaring on first use) a body-less function standing
// in for a hardware intrinsic.
func (g *mergeBuild) intrinsic(name string, params []ir.TypeHandle, result *ir.TypeHandle) ir.FunctionHandle {
	if h, ok := g.intrinsics[name]; ok {
		return h
	}
	fn := ir.Function{Name: name}
	for i, p := range params {
		fn.Arguments = append(fn.Arguments, ir.FunctionArgument{Name: fmt.Sprintf("a%d", i), Type: p})
	}
	if result != nil {
		fn.Result = &ir.FunctionResult{Type: *result}
	}
	h := ir.FunctionHandle(len(g.mod.Functions))
	g.mod.Functions = append(g.mod.Functions, fn)
	g.intrinsics[name] = h
	return h
}

// extractBits yields an unsigned bit-field extract of count bits at offset.
func (g *mergeBuild) extractBits(value ir.ExpressionHandle, offset, count uint32) ir.ExpressionHandle {
	off := g.b.litU32(offset)
	cnt := g.b.litU32(count)
	return g.b.add(ir.ExprMath{Fun: ir.MathExtractBits, Arg: value, Arg1: &off, Arg2: &cnt}, trU32())
}

// prologue emits the shared head of a merged entry point: full exec mask,
// wavefront thread index, and the wave-info sub-counts for both stages.
func (g *mergeBuild) prologue(block *ir.Block, waveInfoArgIdx int) (threadID, firstCount, secondCount ir.ExpressionHandle) {
	b := g.b
	u32 := u32Type(g.types)
	i64 := g.types.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarSint, Width: 8})

	// Initialize the EXEC mask so every lane of the wavefront runs the
	// stage gating below.
	initExec := g.intrinsic(intrinsicInitExec, []ir.TypeHandle{i64}, nil)
	b.callVoid(block, initExec, []ir.ExpressionHandle{b.litI64(-1)})

	// threadId = mbcnt.hi(-1, mbcnt.lo(-1, 0)): two bit-count reductions
	// over the 64-bit wavefront mask.
	mbcntLo := g.intrinsic(intrinsicMbcntLo, []ir.TypeHandle{u32, u32}, &u32)
	mbcntHi := g.intrinsic(intrinsicMbcntHi, []ir.TypeHandle{u32, u32}, &u32)
	threadID = b.call(block, mbcntLo, []ir.ExpressionHandle{b.litU32(0xFFFFFFFF), b.litU32(0)}, trU32())
	threadID = b.call(block, mbcntHi, []ir.ExpressionHandle{b.litU32(0xFFFFFFFF), threadID}, trU32())

	waveInfo := b.argExpr(waveInfoArgIdx)
	firstCount = g.extractBits(waveInfo, waveInfoFirstStageCountShift, waveInfoCountBits)
	secondCount = g.extractBits(waveInfo, waveInfoSecondStageCountShift, waveInfoCountBits)
	return threadID, firstCount, secondCount
}

// gate wraps body in "if threadId < count".
func (g *mergeBuild) gate(block *ir.Block, threadID, count ir.ExpressionHandle, body ir.Block) {
	enable := g.b.add(ir.ExprBinary{Op: ir.BinaryLess, Left: threadID, Right: count}, trBool())
	g.b.flush(block)
	*block = append(*block, ir.Statement{Kind: ir.StmtIf{Condition: enable, Accept: body}})
}

// unpackUserData splits the packed user-data argument into one stage
// argument's shape: an element extract for scalars, a swizzle for vectors
// within reach, and a compose otherwise.
func (g *mergeBuild) unpackUserData(
	userData ir.ExpressionHandle,
	packedCount uint32,
	offset, n uint32,
	want ir.TypeHandle,
) ir.ExpressionHandle {
	b := g.b
	if packedCount == 1 {
		if offset != 0 || n != 1 {
			panic("llpc: user data unpack out of range")
		}
		return userData
	}
	if offset+n > packedCount {
		panic("llpc: user data unpack out of range")
	}
	if n == 1 {
		return b.add(ir.ExprAccessIndex{Base: userData, Index: offset}, trU32())
	}
	if packedCount <= 4 {
		var pattern [4]ir.SwizzleComponent
		for i := uint32(0); i < n; i++ {
			pattern[i] = ir.SwizzleComponent(offset + i)
		}
		return b.add(ir.ExprSwizzle{Size: ir.VectorSize(n), Vector: userData, Pattern: pattern}, trHandle(want))
	}
	components := make([]ir.ExpressionHandle, n)
	for i := uint32(0); i < n; i++ {
		components[i] = b.add(ir.ExprAccessIndex{Base: userData, Index: offset + i}, trU32())
	}
	return b.add(ir.ExprCompose{Type: want, Components: components}, trHandle(want))
}

// stageUserDataArgs assembles the user-data portion of a stage call from the
// merged entry's packed user-data argument. Returns the call arguments so
// far and the index of the stage's first system-value argument.
func (g *mergeBuild) stageUserDataArgs(
	intf *InterfaceData,
	userData ir.ExpressionHandle,
	packedCount uint32,
) ([]ir.ExpressionHandle, int) {
	var args []ir.ExpressionHandle
	userDataIdx := uint32(0)
	argIdx := 0
	for userDataIdx < intf.UserDataCount {
		if argIdx >= len(intf.Args) {
			panic("llpc: stage user data exceeds its argument list")
		}
		a := intf.Args[argIdx]
		if !a.InReg {
			panic("llpc: user data argument not in a fast register")
		}
		n := typeDwords(g.types, a.Type)
		args = append(args, g.unpackUserData(userData, packedCount, userDataIdx, n, a.Type))
		userDataIdx += n
		argIdx++
	}
	return args, argIdx
}

// coerce adapts a raw dword value to the callee's declared argument type.
// Tess coordinates arrive as integer registers but are declared as floats.
func (g *mergeBuild) coerce(value ir.ExpressionHandle, want ir.TypeHandle) ir.ExpressionHandle {
	ty, ok := g.types.Lookup(want)
	if !ok {
		panic(fmt.Sprintf("llpc: dangling type handle %d", want))
	}
	if scalar, ok := ty.Inner.(ir.ScalarType); ok && scalar.Kind == ir.ScalarFloat {
		return g.b.add(ir.ExprAs{Expr: value, Kind: ir.ScalarFloat}, trF32())
	}
	return value
}

func (g *mergeBuild) generateLsHsEntryPoint(ls, hs stageRef) (ir.FunctionHandle, uint64) {
	u32 := u32Type(g.types)

	// Merged argument list: 8 special system values, the packed user data
	// sized to the larger stage requirement, then the per-thread VGPRs.
	var inRegMask uint64
	var fnArgs []ir.FunctionArgument
	for i := 0; i < lsHsSpecialSysValueCount; i++ {
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: fmt.Sprintf("sgpr%d", i), Type: u32})
		inRegMask |= 1 << uint(i)
	}

	userDataCount := uint32(0)
	if ls.present && ls.intf.UserDataCount > userDataCount {
		userDataCount = ls.intf.UserDataCount
	}
	if hs.present && hs.intf.UserDataCount > userDataCount {
		userDataCount = hs.intf.UserDataCount
	}
	userDataArgIdx := InvalidValue
	if userDataCount > 0 {
		userDataArgIdx = len(fnArgs)
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: "userData", Type: dwordsType(g.types, userDataCount)})
		inRegMask |= 1 << uint(userDataArgIdx)
	}

	vgprBase := len(fnArgs)
	for _, name := range []string{"patchId", "relPatchId", "vertexId", "relVertexId", "stepRate", "instanceId"} {
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: name, Type: u32})
	}

	g.b = &funcBuilder{fn: ir.Function{Name: "main", Arguments: fnArgs}}
	b := g.b

	var body ir.Block
	threadID, lsVertCount, hsVertCount := g.prologue(&body, lsHsSysValueMergedWaveInfo)

	patchID := b.argExpr(vgprBase)
	relPatchID := b.argExpr(vgprBase + 1)

	// GFX9 has an issue initializing LS VGPRs: with a null HS, v0..v3
	// carry the LS inputs instead of the expected v2..v5.
	nullHs := b.add(ir.ExprBinary{Op: ir.BinaryEqual, Left: hsVertCount, Right: b.litU32(0)}, trBool())
	selectShifted := func(low, high int) ir.ExpressionHandle {
		return b.add(ir.ExprSelect{
			Condition: nullHs,
			Accept:    b.argExpr(vgprBase + low),
			Reject:    b.argExpr(vgprBase + high),
		}, trU32())
	}
	vertexID := selectShifted(0, 2)
	relVertexID := selectShifted(1, 3)
	stepRate := selectShifted(2, 4)
	instanceID := selectShifted(3, 5)

	var userData ir.ExpressionHandle
	if userDataArgIdx != InvalidValue {
		userData = b.argExpr(userDataArgIdx)
	}
	// Pin the selects into the entry block so both gated regions see them.
	b.flush(&body)

	// First gated region: the LS (vertex) body, then the wavefront
	// barrier ordering it before the HS reads.
	var lsBlock ir.Block
	if ls.present {
		args, argIdx := g.stageUserDataArgs(ls.intf, userData, userDataCount)
		for _, sys := range []ir.ExpressionHandle{vertexID, relVertexID, stepRate, instanceID} {
			if argIdx >= len(ls.intf.Args) {
				break
			}
			args = append(args, sys)
			argIdx++
		}
		if argIdx != len(ls.intf.Args) {
			panic("llpc: failed to account for all LS entry arguments")
		}
		b.callVoid(&lsBlock, ls.entry, args)
		barrier := g.intrinsic(intrinsicBarrier, nil, nil)
		b.callVoid(&lsBlock, barrier, nil)
	}
	g.gate(&body, threadID, lsVertCount, lsBlock)

	// Second gated region: the HS (tess-control) body.
	var hsBlock ir.Block
	if hs.present {
		args, argIdx := g.stageUserDataArgs(hs.intf, userData, userDataCount)
		if g.pipe.TessOffChip {
			args = append(args, b.argExpr(lsHsSysValueOffChipLdsBase))
			argIdx++
		}
		args = append(args, b.argExpr(lsHsSysValueTfBufferBase))
		argIdx++
		args = append(args, patchID)
		argIdx++
		args = append(args, relPatchID)
		argIdx++
		if argIdx != len(hs.intf.Args) {
			panic("llpc: failed to account for all HS entry arguments")
		}
		b.callVoid(&hsBlock, hs.entry, args)
	}
	g.gate(&body, threadID, hsVertCount, hsBlock)

	body = append(body, ir.Statement{Kind: ir.StmtReturn{}})
	b.fn.Body = body

	entry := ir.FunctionHandle(len(g.mod.Functions))
	g.mod.Functions = append(g.mod.Functions, b.fn)
	return entry, inRegMask
}

func (g *mergeBuild) generateEsGsEntryPoint(es, gs stageRef) (ir.FunctionHandle, uint64) {
	u32 := u32Type(g.types)
	hasTs := g.pipe.HasStage(ShaderStageTessControl) || g.pipe.HasStage(ShaderStageTessEval)

	var inRegMask uint64
	var fnArgs []ir.FunctionArgument
	for i := 0; i < esGsSpecialSysValueCount; i++ {
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: fmt.Sprintf("sgpr%d", i), Type: u32})
		inRegMask |= 1 << uint(i)
	}

	userDataCount := gs.intf.UserDataCount
	if es.present && es.intf.UserDataCount > userDataCount {
		userDataCount = es.intf.UserDataCount
	}
	userDataArgIdx := InvalidValue
	if userDataCount > 0 {
		userDataArgIdx = len(fnArgs)
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: "userData", Type: dwordsType(g.types, userDataCount)})
		inRegMask |= 1 << uint(userDataArgIdx)
	}

	vgprBase := len(fnArgs)
	vgprNames := []string{"esGsOffsets01", "esGsOffsets23", "gsPrimitiveId", "invocationId", "esGsOffsets45"}
	if hasTs {
		vgprNames = append(vgprNames, "tessCoordX", "tessCoordY", "relPatchId", "patchId")
	} else {
		vgprNames = append(vgprNames, "vertexId", "relVertexId", "vsPrimitiveId", "instanceId")
	}
	for _, name := range vgprNames {
		fnArgs = append(fnArgs, ir.FunctionArgument{Name: name, Type: u32})
	}

	g.b = &funcBuilder{fn: ir.Function{Name: "main", Arguments: fnArgs}}
	b := g.b

	var body ir.Block
	threadID, esVertCount, gsVertCount := g.prologue(&body, esGsSysValueMergedWaveInfo)

	waveInfo := b.argExpr(esGsSysValueMergedWaveInfo)
	gsWaveID := g.extractBits(waveInfo, waveInfoGsWaveIDShift, waveInfoCountBits)

	var userData ir.ExpressionHandle
	if userDataArgIdx != InvalidValue {
		userData = b.argExpr(userDataArgIdx)
	}
	// Pin the wave ID into the entry block; the GS region reads it.
	b.flush(&body)

	// First gated region: the ES (vertex or tess-eval) body plus the
	// ordering barrier before the GS consumes the ring.
	var esBlock ir.Block
	if es.present {
		args, argIdx := g.stageUserDataArgs(es.intf, userData, userDataCount)
		esArgs := es.intf.Args
		if hasTs {
			if g.pipe.TessOffChip {
				// The ES-side off-chip LDS base spans two registers.
				args = append(args, b.argExpr(esGsSysValueOffChipLdsBase))
				argIdx++
				args = append(args, b.argExpr(esGsSysValueOffChipLdsBase))
				argIdx++
			}
			// The standalone ES-GS ring offset has no meaning in a
			// merged shader.
			args = append(args, b.add(ir.ExprZeroValue{Type: u32}, trU32()))
			argIdx++

			for _, vgpr := range []int{5, 6, 7, 8} {
				if argIdx >= len(esArgs) {
					panic("llpc: failed to account for all ES entry arguments")
				}
				value := g.coerce(b.argExpr(vgprBase+vgpr), esArgs[argIdx].Type)
				args = append(args, value)
				argIdx++
			}
		} else {
			args = append(args, b.add(ir.ExprZeroValue{Type: u32}, trU32()))
			argIdx++

			for _, vgpr := range []int{5, 6, 7, 8} {
				if argIdx >= len(esArgs) {
					break
				}
				args = append(args, b.argExpr(vgprBase+vgpr))
				argIdx++
			}
		}
		if argIdx != len(esArgs) {
			panic("llpc: failed to account for all ES entry arguments")
		}
		b.callVoid(&esBlock, es.entry, args)
		barrier := g.intrinsic(intrinsicBarrier, nil, nil)
		b.callVoid(&esBlock, barrier, nil)
	}
	g.gate(&body, threadID, esVertCount, esBlock)

	// Second gated region: the GS body, with the six per-vertex ring
	// offsets unpacked from their 16-bit halves.
	var gsBlock ir.Block
	var esGsOffsets [6]ir.ExpressionHandle
	extract16 := func(vgpr int, shift uint32) ir.ExpressionHandle {
		return g.extractBits(b.argExpr(vgprBase+vgpr), shift, 16)
	}
	esGsOffsets[0] = extract16(0, 0)
	esGsOffsets[1] = extract16(0, 16)
	esGsOffsets[2] = extract16(1, 0)
	esGsOffsets[3] = extract16(1, 16)
	esGsOffsets[4] = extract16(4, 0)
	esGsOffsets[5] = extract16(4, 16)

	{
		args, argIdx := g.stageUserDataArgs(gs.intf, userData, userDataCount)
		sysArgs := []ir.ExpressionHandle{
			b.argExpr(esGsSysValueGsVsOffset),
			gsWaveID,
			esGsOffsets[0],
			esGsOffsets[1],
			b.argExpr(vgprBase + 2), // primitive ID
			esGsOffsets[2],
			esGsOffsets[3],
			esGsOffsets[4],
			esGsOffsets[5],
			b.argExpr(vgprBase + 3), // invocation ID
		}
		for _, sys := range sysArgs {
			args = append(args, sys)
			argIdx++
		}
		if argIdx != len(gs.intf.Args) {
			panic("llpc: failed to account for all GS entry arguments")
		}
		b.callVoid(&gsBlock, gs.entry, args)
	}
	g.gate(&body, threadID, gsVertCount, gsBlock)

	body = append(body, ir.Statement{Kind: ir.StmtReturn{}})
	b.fn.Body = body

	entry := ir.FunctionHandle(len(g.mod.Functions))
	g.mod.Functions = append(g.mod.Functions, b.fn)
	return entry, inRegMask
}

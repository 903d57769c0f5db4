// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package llpc

import (
	"fmt"

	"github.com/gogpu/naga/ir"
)

// Bit-field parameters for deriving the tess-control invocation ID from the
// relative patch ID argument. Consumed by the IR lowering stage.
const (
	TcsInvocationIDShift = 8
	TcsInvocationIDBits  = 5
)

// ArgInfo describes one entry-point argument produced by the planner.
type ArgInfo struct {
	Name string
	Type ir.TypeHandle

	// InReg marks arguments that live in scalar (fast) registers.
	InReg bool
}

// SpillTableInfo locates the spill table within the user-data layout.
// OffsetInDwords is the declared offset of the first spilled node;
// SizeInDwords covers everything from there to the end of the required user
// data.
type SpillTableInfo struct {
	OffsetInDwords int
	SizeInDwords   uint32
}

// VbTableInfo tracks the vertex buffer table node. ResNodeIdx is the node's
// declared offset plus one, or InvalidValue when absent.
type VbTableInfo struct {
	ResNodeIdx int
}

// PushConstInfo records which node index holds the push constants, or
// InvalidValue. When the push constant node spills, its dwords are read from
// the spill table at the node's declared byte offset.
type PushConstInfo struct {
	ResNodeIdx int
}

type VsEntryArgIdxs struct {
	VbTablePtr   int
	BaseVertex   int
	BaseInstance int
	DrawIndex    int
	EsGsOffset   int
	VertexID     int
	RelVertexID  int
	PrimitiveID  int
	InstanceID   int
}

type TcsEntryArgIdxs struct {
	OffChipLdsBase int
	TfBufferBase   int
	PatchID        int
	RelPatchID     int
}

type TesEntryArgIdxs struct {
	OffChipLdsBase int
	EsGsOffset     int
	TessCoordX     int
	TessCoordY     int
	RelPatchID     int
	PatchID        int
}

type GsEntryArgIdxs struct {
	GsVsOffset   int
	WaveID       int
	EsGsOffsets  [6]int
	PrimitiveID  int
	InvocationID int
}

// InterpLocs holds the argument indices of one interpolation mode's sample,
// center, centroid, and pull-mode inputs.
type InterpLocs struct {
	Sample   int
	Center   int
	Centroid int
	PullMode int
}

type FsEntryArgIdxs struct {
	PrimMask       int
	PerspInterp    InterpLocs
	LinearInterp   InterpLocs
	FragCoord      [4]int
	FrontFacing    int
	Ancillary      int
	SampleCoverage int
}

type CsEntryArgIdxs struct {
	WorkgroupID       int
	NumWorkgroupsPtr  int
	LocalInvocationID int
}

// EntryArgIdxs maps every system value and direct-register resource node to
// its position in the final argument list. Unassigned entries hold
// InvalidValue.
type EntryArgIdxs struct {
	ResNodeValues [MaxDescTableCount]int
	SpillTable    int

	Vs  VsEntryArgIdxs
	Tcs TcsEntryArgIdxs
	Tes TesEntryArgIdxs
	Gs  GsEntryArgIdxs
	Fs  FsEntryArgIdxs
	Cs  CsEntryArgIdxs
}

// UserDataUsage records which user-data registers hold internal values.
type UserDataUsage struct {
	SpillTable int

	Vs struct {
		VbTablePtr   int
		BaseVertex   int
		BaseInstance int
		DrawIndex    int
	}
	Cs struct {
		NumWorkgroupsPtr int
	}
}

// InterfaceData is the resolved register layout of one stage: the ordered
// argument list, which arguments are fast-register, and where every user-data
// node and system value ended up. Computed once per stage per compilation and
// consumed by the merger and the IR lowering stage.
type InterfaceData struct {
	Stage ShaderStage

	Args      []ArgInfo
	InRegMask uint64

	// UserDataCount is the number of user-data registers consumed,
	// internal table pointers and reserved built-ins included.
	UserDataCount uint32

	// UserDataMap maps a user-data register index to the declared dword
	// offset of the node occupying it.
	UserDataMap [MaxUserDataRegisters]int

	EntryArgIdxs  EntryArgIdxs
	SpillTable    SpillTableInfo
	VbTable       VbTableInfo
	PushConst     PushConstInfo
	UserDataUsage UserDataUsage
}

// FunctionArguments materializes the planned layout as naga function
// arguments, for building the stage's entry function.
func (d *InterfaceData) FunctionArguments() []ir.FunctionArgument {
	args := make([]ir.FunctionArgument, len(d.Args))
	for i, a := range d.Args {
		args[i] = ir.FunctionArgument{Name: a.Name, Type: a.Type}
	}
	return args
}

func newInterfaceData(stage ShaderStage) *InterfaceData {
	d := &InterfaceData{Stage: stage}
	for i := range d.UserDataMap {
		d.UserDataMap[i] = InvalidValue
	}
	e := &d.EntryArgIdxs
	for i := range e.ResNodeValues {
		e.ResNodeValues[i] = InvalidValue
	}
	e.SpillTable = InvalidValue
	e.Vs = VsEntryArgIdxs{InvalidValue, InvalidValue, InvalidValue, InvalidValue,
		InvalidValue, InvalidValue, InvalidValue, InvalidValue, InvalidValue}
	e.Tcs = TcsEntryArgIdxs{InvalidValue, InvalidValue, InvalidValue, InvalidValue}
	e.Tes = TesEntryArgIdxs{InvalidValue, InvalidValue, InvalidValue, InvalidValue,
		InvalidValue, InvalidValue}
	e.Gs = GsEntryArgIdxs{
		GsVsOffset: InvalidValue, WaveID: InvalidValue,
		EsGsOffsets:  [6]int{InvalidValue, InvalidValue, InvalidValue, InvalidValue, InvalidValue, InvalidValue},
		PrimitiveID:  InvalidValue,
		InvocationID: InvalidValue,
	}
	e.Fs = FsEntryArgIdxs{
		PrimMask:       InvalidValue,
		PerspInterp:    InterpLocs{InvalidValue, InvalidValue, InvalidValue, InvalidValue},
		LinearInterp:   InterpLocs{InvalidValue, InvalidValue, InvalidValue, InvalidValue},
		FragCoord:      [4]int{InvalidValue, InvalidValue, InvalidValue, InvalidValue},
		FrontFacing:    InvalidValue,
		Ancillary:      InvalidValue,
		SampleCoverage: InvalidValue,
	}
	e.Cs = CsEntryArgIdxs{InvalidValue, InvalidValue, InvalidValue}

	d.SpillTable.OffsetInDwords = InvalidValue
	d.VbTable.ResNodeIdx = InvalidValue
	d.PushConst.ResNodeIdx = InvalidValue
	d.UserDataUsage.SpillTable = InvalidValue
	d.UserDataUsage.Vs.VbTablePtr = InvalidValue
	d.UserDataUsage.Vs.BaseVertex = InvalidValue
	d.UserDataUsage.Vs.BaseInstance = InvalidValue
	d.UserDataUsage.Vs.DrawIndex = InvalidValue
	d.UserDataUsage.Cs.NumWorkgroupsPtr = InvalidValue
	return d
}

type layoutState struct {
	pipe  *PipelineState
	stage ShaderStage
	nodes []ResourceMappingNode
	usage *ResourceUsage
	types *ir.TypeRegistry

	intf        *InterfaceData
	userDataIdx uint32
}

// pushArg appends one argument and returns its index.
func (st *layoutState) pushArg(name string, ty ir.TypeHandle, inReg bool) int {
	idx := len(st.intf.Args)
	if idx >= 64 {
		panic("llpc: entry point argument count exceeds register mask width")
	}
	st.intf.Args = append(st.intf.Args, ArgInfo{Name: name, Type: ty, InReg: inReg})
	if inReg {
		st.intf.InRegMask |= 1 << uint(idx)
	}
	return idx
}

func u32Type(types *ir.TypeRegistry) ir.TypeHandle {
	return types.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarUint, Width: 4})
}

func f32Type(types *ir.TypeRegistry) ir.TypeHandle {
	return types.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarFloat, Width: 4})
}

func boolType(types *ir.TypeRegistry) ir.TypeHandle {
	return types.GetOrCreate("", ir.ScalarType{Kind: ir.ScalarBool, Width: 1})
}

// dwordsType returns the type carrying n user-data dwords: a scalar, a
// vector, or, past the vector width limit, a tightly packed array.
func dwordsType(types *ir.TypeRegistry, n uint32) ir.TypeHandle {
	u32 := ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	switch {
	case n == 1:
		return u32Type(types)
	case n <= 4:
		return types.GetOrCreate("", ir.VectorType{Size: ir.VectorSize(n), Scalar: u32})
	default:
		size := n
		return types.GetOrCreate("", ir.ArrayType{
			Base:   u32Type(types),
			Size:   ir.ArraySize{Constant: &size},
			Stride: 4,
		})
	}
}

func vecF32Type(types *ir.TypeRegistry, n uint32) ir.TypeHandle {
	f32 := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	return types.GetOrCreate("", ir.VectorType{Size: ir.VectorSize(n), Scalar: f32})
}

func vec3U32Type(types *ir.TypeRegistry) ir.TypeHandle {
	u32 := ir.ScalarType{Kind: ir.ScalarUint, Width: 4}
	return types.GetOrCreate("", ir.VectorType{Size: ir.Vec3, Scalar: u32})
}

func numWorkgroupsPtrType(types *ir.TypeRegistry) ir.TypeHandle {
	return types.GetOrCreate("", ir.PointerType{Base: vec3U32Type(types), Space: ir.SpaceUniform})
}

// typeDwords returns how many user-data dwords an argument type occupies.
func typeDwords(types *ir.TypeRegistry, h ir.TypeHandle) uint32 {
	ty, ok := types.Lookup(h)
	if !ok {
		panic(fmt.Sprintf("llpc: dangling type handle %d", h))
	}
	switch inner := ty.Inner.(type) {
	case ir.ScalarType:
		return 1
	case ir.VectorType:
		return uint32(inner.Size)
	case ir.ArrayType:
		if inner.Size.Constant == nil {
			panic("llpc: runtime-sized user data argument")
		}
		return *inner.Size.Constant
	case ir.PointerType:
		return 2
	}
	panic(fmt.Sprintf("llpc: unexpected argument type %T", ty.Inner))
}

// sysValueArg is one entry of a stage's fixed system-value argument table.
type sysValueArg struct {
	name  string
	typ   func(*layoutState) ir.TypeHandle
	inReg bool
	when  func(*layoutState) bool
	bind  func(*layoutState, int)
}

func argU32(st *layoutState) ir.TypeHandle { return u32Type(st.types) }
func argF32(st *layoutState) ir.TypeHandle { return f32Type(st.types) }

func argVec2F(st *layoutState) ir.TypeHandle { return vecF32Type(st.types, 2) }
func argVec3F(st *layoutState) ir.TypeHandle { return vecF32Type(st.types, 3) }
func argVec3U(st *layoutState) ir.TypeHandle { return vec3U32Type(st.types) }

// BuildEntryPointLayout computes the register layout for one stage: internal
// table pointers first, then active user-data nodes packed into fast
// registers (spilling the remainder), then internal user data, then the
// stage's fixed system-value arguments.
//
// Bookkeeping violations panic; they indicate contract breakage in the
// caller, not runtime conditions.
func BuildEntryPointLayout(
	pipe *PipelineState,
	stage ShaderStage,
	nodes []ResourceMappingNode,
	usage *ResourceUsage,
	types *ir.TypeRegistry,
) *InterfaceData {
	st := &layoutState{
		pipe:  pipe,
		stage: stage,
		nodes: nodes,
		usage: usage,
		types: types,
		intf:  newInterfaceData(stage),
	}

	st.buildUserData()
	st.buildInternalUserData()
	st.intf.UserDataCount = st.userDataIdx
	st.buildSystemValues()

	return st.intf
}

func (st *layoutState) buildUserData() {
	intf := st.intf

	// Global internal table, then per-shader internal table.
	st.pushArg("globalTable", u32Type(st.types), true)
	st.userDataIdx++
	st.pushArg("perShaderTable", u32Type(st.types), true)
	st.userDataIdx++

	availUserDataCount := st.pipe.Gpu.MaxUserDataCount - st.userDataIdx
	requiredUserDataCount := uint32(0)
	useFixedLayout := st.stage == ShaderStageCompute

	for i := range st.nodes {
		node := &st.nodes[i]
		// The vertex buffer table is internal user data and never
		// counts toward spillable user data. Its recorded value is the
		// node offset plus one.
		if node.Kind == NodeIndirectUserDataPtr {
			intf.VbTable.ResNodeIdx = int(node.OffsetInDwords) + 1
			continue
		}
		if !nodeActive(node, st.usage) {
			continue
		}
		if node.Kind == NodePushConst {
			intf.PushConst.ResNodeIdx = i
		}
		if useFixedLayout {
			if end := node.OffsetInDwords + node.SizeInDwords; end > requiredUserDataCount {
				requiredUserDataCount = end
			}
		} else {
			requiredUserDataCount += node.SizeInDwords
		}
	}

	// Reserve registers for stage-specific internal user data.
	builtins := &st.usage.Builtins
	switch st.stage {
	case ShaderStageVertex:
		if intf.VbTable.ResNodeIdx != InvalidValue {
			availUserDataCount--
		}
		if builtins.Vs.BaseVertex || builtins.Vs.BaseInstance {
			availUserDataCount -= 2
		}
		if builtins.Vs.DrawIndex {
			availUserDataCount--
		}
	case ShaderStageCompute:
		// gl_NumWorkGroups is emulated via a user-data pointer.
		if builtins.Cs.NumWorkgroups {
			availUserDataCount -= 2
		}
	}

	needSpill := false
	if useFixedLayout {
		needSpill = requiredUserDataCount > MaxCsUserDataCount
		availUserDataCount = MaxCsUserDataCount
	} else {
		needSpill = requiredUserDataCount > availUserDataCount
		if needSpill {
			// The spill table pointer takes one more register.
			availUserDataCount--
		}
	}

	actualAvailUserDataCount := uint32(0)
	for i := range st.nodes {
		node := &st.nodes[i]
		if node.Kind == NodeIndirectUserDataPtr {
			continue
		}
		if !nodeActive(node, st.usage) {
			continue
		}

		if useFixedLayout {
			// The compute layout is fixed: dword offsets must stay
			// stable, so gaps are padded with dummy arguments.
			for st.userDataIdx < node.OffsetInDwords+csStartUserData &&
				st.userDataIdx < availUserDataCount+csStartUserData {
				st.pushArg("pad", u32Type(st.types), true)
				st.userDataIdx++
				actualAvailUserDataCount++
			}
		}

		if actualAvailUserDataCount+node.SizeInDwords <= availUserDataCount {
			// Node fits in fast registers.
			argIdx := InvalidValue
			switch node.Kind {
			case NodeDescTablePtr:
				if node.SizeInDwords != 1 {
					panic("llpc: descriptor table pointer must be one dword")
				}
				argIdx = st.pushArg("descTable", u32Type(st.types), true)
				intf.UserDataMap[st.userDataIdx] = int(node.OffsetInDwords)
				st.userDataIdx++
			case NodePushConst, NodeDescResource, NodeDescSampler, NodeDescTexelBuffer,
				NodeDescFmask, NodeDescBuffer, NodeDescBufferCompact:
				argIdx = st.pushArg("userData", dwordsType(st.types, node.SizeInDwords), true)
				for j := uint32(0); j < node.SizeInDwords; j++ {
					intf.UserDataMap[st.userDataIdx+j] = int(node.OffsetInDwords + j)
				}
				st.userDataIdx += node.SizeInDwords
			default:
				// Combined texture nodes are split upstream and
				// never reach the planner.
				panic(fmt.Sprintf("llpc: unexpected user data node kind %d", node.Kind))
			}
			if i < MaxDescTableCount {
				intf.EntryArgIdxs.ResNodeValues[i] = argIdx
			}
			actualAvailUserDataCount += node.SizeInDwords
		} else if needSpill && intf.SpillTable.OffsetInDwords == InvalidValue {
			intf.SpillTable.OffsetInDwords = int(node.OffsetInDwords)
		}
	}

	if needSpill {
		if intf.SpillTable.OffsetInDwords == InvalidValue {
			panic("llpc: spill required but no node spilled")
		}
		if useFixedLayout {
			// Pad up to the end of the fixed layout; the last fixed
			// register is the spill table pointer.
			for st.userDataIdx <= MaxCsUserDataCount+csStartUserData {
				st.pushArg("pad", u32Type(st.types), true)
				st.userDataIdx++
			}
			intf.UserDataUsage.SpillTable = int(st.userDataIdx) - 1
			intf.EntryArgIdxs.SpillTable = len(intf.Args) - 1
		} else {
			idx := st.pushArg("spillTable", u32Type(st.types), true)
			intf.UserDataUsage.SpillTable = int(st.userDataIdx)
			st.userDataIdx++
			intf.EntryArgIdxs.SpillTable = idx
		}
		intf.SpillTable.SizeInDwords = requiredUserDataCount - uint32(intf.SpillTable.OffsetInDwords)
	}
}

func (st *layoutState) buildInternalUserData() {
	intf := st.intf
	builtins := &st.usage.Builtins

	switch st.stage {
	case ShaderStageVertex:
		for i := range st.nodes {
			node := &st.nodes[i]
			if node.Kind != NodeIndirectUserDataPtr {
				continue
			}
			if node.SizeInDwords != 1 {
				panic("llpc: vertex buffer table pointer must be one dword")
			}
			idx := st.pushArg("vbTablePtr", u32Type(st.types), true)
			intf.UserDataUsage.Vs.VbTablePtr = int(st.userDataIdx)
			intf.EntryArgIdxs.Vs.VbTablePtr = idx
			intf.UserDataMap[st.userDataIdx] = int(node.OffsetInDwords)
			st.userDataIdx++
			break
		}

		if builtins.Vs.BaseVertex || builtins.Vs.BaseInstance {
			intf.EntryArgIdxs.Vs.BaseVertex = st.pushArg("baseVertex", u32Type(st.types), true)
			intf.UserDataUsage.Vs.BaseVertex = int(st.userDataIdx)
			st.userDataIdx++

			intf.EntryArgIdxs.Vs.BaseInstance = st.pushArg("baseInstance", u32Type(st.types), true)
			intf.UserDataUsage.Vs.BaseInstance = int(st.userDataIdx)
			st.userDataIdx++
		}

		if builtins.Vs.DrawIndex {
			intf.EntryArgIdxs.Vs.DrawIndex = st.pushArg("drawIndex", u32Type(st.types), true)
			intf.UserDataUsage.Vs.DrawIndex = int(st.userDataIdx)
			st.userDataIdx++
		}

	case ShaderStageCompute:
		if builtins.Cs.NumWorkgroups {
			// The backend requires pointers in even register pairs.
			if st.userDataIdx%2 != 0 {
				st.pushArg("pad", u32Type(st.types), true)
				st.userDataIdx++
			}
			idx := st.pushArg("numWorkgroupsPtr", numWorkgroupsPtrType(st.types), true)
			intf.EntryArgIdxs.Cs.NumWorkgroupsPtr = idx
			intf.UserDataUsage.Cs.NumWorkgroupsPtr = int(st.userDataIdx)
			st.userDataIdx += 2
		}
	}
}

func (st *layoutState) buildSystemValues() {
	for _, a := range sysValueTable(st.stage) {
		if a.when != nil && !a.when(st) {
			continue
		}
		idx := st.pushArg(a.name, a.typ(st), a.inReg)
		if a.bind != nil {
			a.bind(st, idx)
		}
	}
}

// sysValueTable returns the stage's fixed system-value argument order. The
// order is an ABI contract with the hardware and must not change.
func sysValueTable(stage ShaderStage) []sysValueArg {
	switch stage {
	case ShaderStageVertex:
		return vsSysValues
	case ShaderStageTessControl:
		return tcsSysValues
	case ShaderStageTessEval:
		return tesSysValues
	case ShaderStageGeometry:
		return gsSysValues
	case ShaderStageFragment:
		return fsSysValues
	case ShaderStageCompute:
		return csSysValues
	}
	panic(fmt.Sprintf("llpc: unexpected shader stage %d", stage))
}

// The rule for vertex system values resembles function default parameters:
// vertex ID [, relative vertex ID, primitive ID [, instance ID]]. A
// tess-control consumer always needs the relative vertex ID.
var vsSysValues = []sysValueArg{
	{
		name: "esGsOffset", typ: argU32, inReg: true,
		when: func(st *layoutState) bool {
			return st.pipe.HasStage(ShaderStageGeometry) && !st.pipe.HasStage(ShaderStageTessEval)
		},
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Vs.EsGsOffset = idx },
	},
	{
		name: "vertexId", typ: argU32,
		when: func(st *layoutState) bool {
			b := &st.usage.Builtins.Vs
			return b.VertexIndex || b.PrimitiveID || b.InstanceIndex ||
				st.pipe.NextStage(ShaderStageVertex) == ShaderStageTessControl
		},
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Vs.VertexID = idx },
	},
	{
		name: "relVertexId", typ: argU32,
		when: vsNeedsRelVertexID,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Vs.RelVertexID = idx },
	},
	{
		name: "primitiveId", typ: argU32,
		when: vsNeedsRelVertexID,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Vs.PrimitiveID = idx },
	},
	{
		name: "instanceId", typ: argU32,
		when: func(st *layoutState) bool { return st.usage.Builtins.Vs.InstanceIndex },
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Vs.InstanceID = idx },
	},
}

func vsNeedsRelVertexID(st *layoutState) bool {
	b := &st.usage.Builtins.Vs
	return b.PrimitiveID || b.InstanceIndex ||
		st.pipe.NextStage(ShaderStageVertex) == ShaderStageTessControl
}

var tcsSysValues = []sysValueArg{
	{
		name: "offChipLdsBase", typ: argU32, inReg: true,
		when: func(st *layoutState) bool { return st.pipe.TessOffChip },
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tcs.OffChipLdsBase = idx },
	},
	{
		name: "tfBufferBase", typ: argU32, inReg: true,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tcs.TfBufferBase = idx },
	},
	{
		name: "patchId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tcs.PatchID = idx },
	},
	{
		// The invocation ID is packed into bits 8..12 of this value.
		name: "relPatchId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tcs.RelPatchID = idx },
	},
}

var tesSysValues = []sysValueArg{
	{
		// The off-chip LDS base occupies two registers. As hardware ES
		// (feeding a GS) the first carries the value; as hardware VS the
		// second does.
		name: "offChipLdsBase", typ: argU32, inReg: true,
		when: tesOffChip,
		bind: func(st *layoutState, idx int) {
			if st.pipe.HasStage(ShaderStageGeometry) {
				st.intf.EntryArgIdxs.Tes.OffChipLdsBase = idx
			} else {
				st.intf.EntryArgIdxs.Tes.OffChipLdsBase = idx + 1
			}
		},
	},
	{name: "offChipLdsBase2", typ: argU32, inReg: true, when: tesOffChip},
	{
		name: "esGsOffset", typ: argU32, inReg: true,
		when: func(st *layoutState) bool { return st.pipe.HasStage(ShaderStageGeometry) },
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tes.EsGsOffset = idx },
	},
	{
		name: "tessCoordX", typ: argF32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tes.TessCoordX = idx },
	},
	{
		name: "tessCoordY", typ: argF32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tes.TessCoordY = idx },
	},
	{
		name: "relPatchId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tes.RelPatchID = idx },
	},
	{
		name: "patchId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Tes.PatchID = idx },
	},
}

func tesOffChip(st *layoutState) bool { return st.pipe.TessOffChip }

var gsSysValues = []sysValueArg{
	{
		name: "gsVsOffset", typ: argU32, inReg: true,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Gs.GsVsOffset = idx },
	},
	{
		name: "waveId", typ: argU32, inReg: true,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Gs.WaveID = idx },
	},
	{name: "esGsOffset0", typ: argU32, bind: bindGsOffset(0)},
	{name: "esGsOffset1", typ: argU32, bind: bindGsOffset(1)},
	{
		name: "primitiveId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Gs.PrimitiveID = idx },
	},
	{name: "esGsOffset2", typ: argU32, bind: bindGsOffset(2)},
	{name: "esGsOffset3", typ: argU32, bind: bindGsOffset(3)},
	{name: "esGsOffset4", typ: argU32, bind: bindGsOffset(4)},
	{name: "esGsOffset5", typ: argU32, bind: bindGsOffset(5)},
	{
		name: "invocationId", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Gs.InvocationID = idx },
	},
}

func bindGsOffset(i int) func(*layoutState, int) {
	return func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Gs.EsGsOffsets[i] = idx }
}

var fsSysValues = []sysValueArg{
	{
		name: "primMask", typ: argU32, inReg: true,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.PrimMask = idx },
	},
	{name: "perspSample", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.PerspInterp.Sample = idx }},
	{name: "perspCenter", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.PerspInterp.Center = idx }},
	{name: "perspCentroid", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.PerspInterp.Centroid = idx }},
	{name: "perspPullMode", typ: argVec3F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.PerspInterp.PullMode = idx }},
	{name: "linearSample", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.LinearInterp.Sample = idx }},
	{name: "linearCenter", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.LinearInterp.Center = idx }},
	{name: "linearCentroid", typ: argVec2F,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.LinearInterp.Centroid = idx }},
	{name: "lineStipple", typ: argF32},
	{name: "fragCoordX", typ: argF32, bind: bindFragCoord(0)},
	{name: "fragCoordY", typ: argF32, bind: bindFragCoord(1)},
	{name: "fragCoordZ", typ: argF32, bind: bindFragCoord(2)},
	{name: "fragCoordW", typ: argF32, bind: bindFragCoord(3)},
	{
		name: "frontFacing", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.FrontFacing = idx },
	},
	{
		name: "ancillary", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.Ancillary = idx },
	},
	{
		name: "sampleCoverage", typ: argU32,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.SampleCoverage = idx },
	},
	{name: "fixedXY", typ: argU32},
}

func bindFragCoord(i int) func(*layoutState, int) {
	return func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Fs.FragCoord[i] = idx }
}

var csSysValues = []sysValueArg{
	{
		name: "workgroupId", typ: argVec3U, inReg: true,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Cs.WorkgroupID = idx },
	},
	// Multiple-dispatch info, TG_SIZE included.
	{name: "dispatchInfo", typ: argU32, inReg: true},
	{
		name: "localInvocationId", typ: argVec3U,
		bind: func(st *layoutState, idx int) { st.intf.EntryArgIdxs.Cs.LocalInvocationID = idx },
	},
}

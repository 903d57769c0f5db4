// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package llpc implements the register-layout planner and hardware stage
// merger of the pipeline compiler. Stage programs are naga IR modules with a
// single entry point; the planner decides how user data and system values map
// onto entry-point arguments, and the merger combines two stage programs into
// one hardware entry point that partitions a wavefront between them.
package llpc

import "errors"

// ErrLink is returned when a stage program cannot be linked into a merged
// shader module. Continuing with a partially linked module is unsafe, so
// merging aborts.
var ErrLink = errors.New("llpc: stage program link failed")

// ErrConsumed is returned when a stage program that was already merged is
// merged again. Merging transfers ownership of the program's module.
var ErrConsumed = errors.New("llpc: stage program already consumed")

// ShaderStage identifies a logical shader stage.
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageTessControl
	ShaderStageTessEval
	ShaderStageGeometry
	ShaderStageFragment
	ShaderStageCompute

	ShaderStageCount
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageTessControl:
		return "tess-control"
	case ShaderStageTessEval:
		return "tess-eval"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	}
	return "unknown"
}

// StageMask is a bitmask of shader stages.
type StageMask uint32

func StageToMask(s ShaderStage) StageMask { return 1 << uint(s) }

func (m StageMask) Has(s ShaderStage) bool { return m&StageToMask(s) != 0 }

// InvalidValue marks an unassigned argument index or register slot.
const InvalidValue = -1

const (
	// MaxUserDataRegisters is the size of the user-data register file
	// visible to one stage.
	MaxUserDataRegisters = 32

	// MaxCsUserDataCount is the fixed user-data budget of compute
	// pipelines, excluding the two leading internal table pointers.
	MaxCsUserDataCount = 16

	// csStartUserData is the register index of the first client user-data
	// dword in the compute fixed layout. Registers 0 and 1 hold the global
	// and per-shader internal table pointers.
	csStartUserData = 2

	// MaxDescTableCount bounds the per-node direct-argument index table.
	MaxDescTableCount = 16
)

// GpuProperties describes the hardware limits the planner works against.
type GpuProperties struct {
	// MaxUserDataCount is the number of fast user-data registers available
	// to one stage, internal table pointers included.
	MaxUserDataCount uint32

	// WavefrontSize is the number of hardware threads per wavefront.
	WavefrontSize uint32

	// DescTablePtrHigh is the high 32 bits shared by all descriptor table
	// addresses.
	DescTablePtrHigh uint32
}

// PipelineState carries the per-pipeline context shared by the planner and
// the merger: which stages are present and the tessellation mode.
type PipelineState struct {
	Gpu         GpuProperties
	Stages      StageMask
	TessOffChip bool
}

func (p *PipelineState) HasStage(s ShaderStage) bool { return p.Stages.Has(s) }

// NextStage returns the stage that consumes the given stage's outputs, or
// InvalidStage when the stage is last in the pipeline.
func (p *PipelineState) NextStage(s ShaderStage) ShaderStage {
	for next := s + 1; next < ShaderStageCount; next++ {
		if p.Stages.Has(next) {
			return next
		}
	}
	return InvalidStage
}

// InvalidStage is returned by NextStage for the last stage of a pipeline.
const InvalidStage ShaderStage = -1

// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package renderpass compiles a declarative multi-subpass render pass
// description into a flat execution plan: per-subpass synchronization
// barriers, layout transitions, load-op clears, and resolve operations, plus
// one end-of-pass block. The plan is built once per render pass object and
// replayed verbatim for every instance.
package renderpass

import (
	"errors"

	vk "github.com/goki/vulkan"
)

// ErrInvalidCreateInfo is returned when the declarative description violates
// a structural contract the builder relies on, such as an out-of-range
// dependency subpass index.
var ErrInvalidCreateInfo = errors.New("renderpass: invalid create info")

// MaxColorTargets is the number of simultaneously bound color targets the
// hardware supports.
const MaxColorTargets = 8

// ExtraLayoutUsage supplements a Vulkan image layout with transient usage the
// plan executor must program, beyond what the layout enum itself encodes.
type ExtraLayoutUsage uint32

const (
	LayoutUsageResolveSrc ExtraLayoutUsage = 1 << iota
	LayoutUsageResolveDst
)

// ImageLayout is the layout state tracked per attachment reference. Two
// layouts differ if either the Vulkan layout or the extra usage differs.
type ImageLayout struct {
	Layout     vk.ImageLayout
	ExtraUsage ExtraLayoutUsage
}

// AttachRef is a bitmask of the ways one attachment is referenced within one
// subpass.
type AttachRef uint32

const (
	AttachRefColor AttachRef = 1 << iota
	AttachRefDepthStencil
	AttachRefInput
	AttachRefResolveSrc
	AttachRefResolveDst
	AttachRefPreserve

	// AttachRefExternalPostInstance marks the forced transition to the
	// attachment's final layout at the end of the render pass instance.
	AttachRefExternalPostInstance
)

// ReadsFromAttachment reports whether any reference in the mask reads from
// the attachment.
func ReadsFromAttachment(m AttachRef) bool {
	return m&(AttachRefInput|AttachRefResolveSrc) != 0
}

// WritesToAttachment reports whether any reference in the mask writes to the
// attachment.
func WritesToAttachment(m AttachRef) bool {
	return m&(AttachRefColor|AttachRefDepthStencil|AttachRefResolveDst) != 0
}

// BarrierFlags mark special synchronization reasons attached to a barrier
// beyond its stage and access masks.
type BarrierFlags uint32

const (
	// BarrierPreColorResolveSync orders color writes before the fixed
	// function resolve that follows.
	BarrierPreColorResolveSync BarrierFlags = 1 << iota

	// BarrierPostResolveSync waits for in-flight resolves to complete.
	BarrierPostResolveSync

	// BarrierImplicitExternalIncoming and BarrierImplicitExternalOutgoing
	// record the Vulkan-mandated implicit external dependencies. They carry
	// no barrier effect today: default memory visibility already covers
	// them. The bookkeeping is kept for future correctness work.
	BarrierImplicitExternalIncoming
	BarrierImplicitExternalOutgoing
)

// BarrierInfo accumulates one barrier's parameters.
type BarrierInfo struct {
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
	Flags         BarrierFlags
}

// TransitionInfo is one automatic layout transition.
type TransitionInfo struct {
	Attachment uint32
	PrevLayout ImageLayout
	NextLayout ImageLayout

	// InitialTransition marks the transition out of the attachment's
	// declared initial layout on its first use.
	InitialTransition bool
}

// LoadOpClearInfo is one load-op clear queued at subpass begin. Clears run
// auto-synchronized and need no surrounding sync points.
type LoadOpClearInfo struct {
	Attachment uint32
	Layout     ImageLayout
	Aspect     vk.ImageAspectFlags
}

// AttachmentTarget pairs an attachment index with the layout it is used in.
type AttachmentTarget struct {
	Attachment uint32
	Layout     ImageLayout
}

// ResolveInfo is one multisample resolve executed at subpass end.
type ResolveInfo struct {
	Src AttachmentTarget
	Dst AttachmentTarget
}

// BindTargetInfo is the color and depth-stencil target set bound for one
// subpass. Unused slots carry vk.AttachmentUnused.
type BindTargetInfo struct {
	ColorTargetCount uint32
	ColorTargets     [MaxColorTargets]AttachmentTarget
	DepthStencil     AttachmentTarget
}

// SyncPointInfo is one finalized sync point: a barrier plus the layout
// transitions it covers. An inactive sync point is skipped by the executor.
type SyncPointInfo struct {
	Barrier     BarrierInfo
	Transitions []TransitionInfo
}

// SubpassBeginInfo is everything executed when a subpass begins.
type SubpassBeginInfo struct {
	HasTopSyncPoint bool

	SyncTop     SyncPointInfo
	ColorClears []LoadOpClearInfo
	DsClears    []LoadOpClearInfo
	BindTargets BindTargetInfo
}

// SubpassEndInfo is everything executed when a subpass ends.
type SubpassEndInfo struct {
	HasPreResolveSyncPoint bool
	HasBottomSyncPoint     bool

	SyncPreResolve SyncPointInfo
	Resolves       []ResolveInfo
	SyncBottom     SyncPointInfo
}

type SubpassExecuteInfo struct {
	Begin SubpassBeginInfo
	End   SubpassEndInfo
}

// EndStateInfo is the block executed when the render pass instance ends.
type EndStateInfo struct {
	HasEndSyncPoint bool

	SyncEnd SyncPointInfo
}

// ExecuteInfo is the finalized execution plan. It is immutable; all its
// variable-length lists share one packed backing allocation per record kind.
type ExecuteInfo struct {
	Subpasses []SubpassExecuteInfo
	End       EndStateInfo
}

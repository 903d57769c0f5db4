// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package renderpass

import (
	"fmt"
	"log/slog"

	vk "github.com/goki/vulkan"

	"github.com/npcdoom/xgl"
	"github.com/npcdoom/xgl/mem"
)

// attachmentState tracks one attachment's usage history while subpasses are
// processed in index order.
type attachmentState struct {
	desc *vk.AttachmentDescription

	firstUseSubpass      uint32
	finalUseSubpass      uint32
	prevReferenceSubpass uint32
	prevReferenceLayout  ImageLayout
	accumulatedRefMask   AttachRef

	loaded           bool
	resolvesInFlight bool
}

// syncPointState accumulates one sync point's barrier and transitions while
// building.
type syncPointState struct {
	barrier     BarrierInfo
	transitions []TransitionInfo
}

type subpassState struct {
	desc *vk.SubpassDescription

	syncTop        syncPointState
	colorClears    []LoadOpClearInfo
	dsClears       []LoadOpClearInfo
	syncPreResolve syncPointState
	resolves       []ResolveInfo
	syncBottom     syncPointState
	bindTargets    BindTargetInfo

	hasFirstUseAttachments bool
	hasFinalUseAttachments bool
	hasExternalIncoming    bool
	hasExternalOutgoing    bool

	hasTopSyncPoint        bool
	hasPreResolveSyncPoint bool
	hasBottomSyncPoint     bool
}

// Builder compiles one render pass description into an ExecuteInfo. All
// transient build state comes from the caller's arena; the finalized plan is
// an ordinary allocation owned by the caller, so the arena may be Reset once
// Build returns.
type Builder struct {
	arena *mem.Arena
	log   *slog.Logger

	info        *vk.RenderPassCreateInfo
	attachments []attachmentState
	subpasses   []subpassState

	endSync         syncPointState
	hasEndSyncPoint bool
}

// NewBuilder returns a builder allocating from arena. A nil logger falls
// back to the package default.
func NewBuilder(arena *mem.Arena, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = xgl.Logger()
	}
	return &Builder{arena: arena, log: logger}
}

// Build compiles info into an execution plan. The builder is single-use.
func (b *Builder) Build(info *vk.RenderPassCreateInfo) (*ExecuteInfo, error) {
	b.info = info

	if err := b.buildInitialState(); err != nil {
		return nil, err
	}
	for subpass := range b.subpasses {
		b.buildSubpass(uint32(subpass))
	}
	b.buildEndState()

	return b.finalize(), nil
}

// buildInitialState validates the dependency list, initializes the per
// attachment and per subpass state, and derives first/final-use information.
func (b *Builder) buildInitialState() error {
	info := b.info
	subpassCount := uint32(len(info.PSubpasses))

	for i := range info.PDependencies {
		dep := &info.PDependencies[i]
		if dep.SrcSubpass != vk.SubpassExternal && dep.SrcSubpass >= subpassCount {
			return fmt.Errorf("%w: dependency %d source subpass %d out of range",
				ErrInvalidCreateInfo, i, dep.SrcSubpass)
		}
		if dep.DstSubpass != vk.SubpassExternal && dep.DstSubpass >= subpassCount {
			return fmt.Errorf("%w: dependency %d destination subpass %d out of range",
				ErrInvalidCreateInfo, i, dep.DstSubpass)
		}
	}
	for i := range info.PSubpasses {
		if n := len(info.PSubpasses[i].PColorAttachments); n > MaxColorTargets {
			return fmt.Errorf("%w: subpass %d binds %d color targets, max %d",
				ErrInvalidCreateInfo, i, n, MaxColorTargets)
		}
	}

	b.attachments = mem.NewSlice[[]attachmentState](b.arena, len(info.PAttachments), len(info.PAttachments))
	for i := range b.attachments {
		desc := &info.PAttachments[i]
		b.attachments[i] = attachmentState{
			desc:                 desc,
			firstUseSubpass:      vk.SubpassExternal,
			finalUseSubpass:      vk.SubpassExternal,
			prevReferenceSubpass: vk.SubpassExternal,
			prevReferenceLayout:  ImageLayout{Layout: desc.InitialLayout},
		}
	}

	b.subpasses = mem.NewSlice[[]subpassState](b.arena, len(info.PSubpasses), len(info.PSubpasses))
	for i := range b.subpasses {
		b.subpasses[i] = subpassState{desc: &info.PSubpasses[i]}
	}

	// Subpass index order is the only execution order; the smallest and
	// largest referencing indices bound each attachment's live range.
	for subpass := uint32(0); subpass < subpassCount; subpass++ {
		for attachment := range b.attachments {
			if b.subpassReferenceMask(subpass, uint32(attachment)) == 0 {
				continue
			}
			if b.attachments[attachment].firstUseSubpass == vk.SubpassExternal {
				b.attachments[attachment].firstUseSubpass = subpass
				b.subpasses[subpass].hasFirstUseAttachments = true
			}
			b.attachments[attachment].finalUseSubpass = subpass
		}
	}
	for attachment := range b.attachments {
		if final := b.attachments[attachment].finalUseSubpass; final != vk.SubpassExternal {
			b.subpasses[final].hasFinalUseAttachments = true
		}
	}

	for i := range info.PDependencies {
		dep := &info.PDependencies[i]
		if dep.SrcSubpass == vk.SubpassExternal && dep.DstSubpass != vk.SubpassExternal {
			b.subpasses[dep.DstSubpass].hasExternalIncoming = true
		}
		if dep.DstSubpass == vk.SubpassExternal && dep.SrcSubpass != vk.SubpassExternal {
			b.subpasses[dep.SrcSubpass].hasExternalOutgoing = true
		}
	}

	return nil
}

// subpassReferenceMask returns how one attachment is referenced within one
// subpass.
func (b *Builder) subpassReferenceMask(subpass, attachment uint32) AttachRef {
	if subpass == vk.SubpassExternal {
		return 0
	}

	desc := b.subpasses[subpass].desc
	var mask AttachRef

	for i := range desc.PColorAttachments {
		if desc.PColorAttachments[i].Attachment != attachment {
			continue
		}
		mask |= AttachRefColor
		if i < len(desc.PResolveAttachments) &&
			desc.PResolveAttachments[i].Attachment != vk.AttachmentUnused {
			mask |= AttachRefResolveSrc
		}
	}

	if desc.PDepthStencilAttachment != nil && desc.PDepthStencilAttachment.Attachment == attachment {
		mask |= AttachRefDepthStencil
	}

	for i := range desc.PInputAttachments {
		if desc.PInputAttachments[i].Attachment == attachment {
			mask |= AttachRefInput
		}
	}

	for _, preserved := range desc.PPreserveAttachments {
		if preserved == attachment {
			mask |= AttachRefPreserve
		}
	}

	for i := range desc.PResolveAttachments {
		if desc.PResolveAttachments[i].Attachment == attachment {
			mask |= AttachRefResolveDst
		}
	}

	return mask
}

func (b *Builder) buildSubpass(subpass uint32) {
	sp := &b.subpasses[subpass]

	b.buildSubpassDependencies(subpass, &sp.syncTop)
	b.buildImplicitDependencies(subpass, &sp.syncTop)

	desc := sp.desc
	b.buildColorAttachmentReferences(subpass, desc)
	b.buildDepthStencilAttachmentReferences(subpass, desc)
	b.buildInputAttachmentReferences(subpass, desc)
	b.buildResolveAttachmentReferences(subpass)

	sp.hasTopSyncPoint = isSyncPointActive(&sp.syncTop)
	sp.hasPreResolveSyncPoint = isSyncPointActive(&sp.syncPreResolve)
	sp.hasBottomSyncPoint = isSyncPointActive(&sp.syncBottom)
}

// buildSubpassDependencies folds every dependency terminating at dstSubpass
// into the given sync point. dstSubpass may be vk.SubpassExternal for the
// end-of-pass outgoing dependencies.
func (b *Builder) buildSubpassDependencies(dstSubpass uint32, sync *syncPointState) {
	for i := range b.info.PDependencies {
		dep := &b.info.PDependencies[i]
		if dep.DstSubpass != dstSubpass {
			continue
		}

		sync.barrier.SrcStageMask |= dep.SrcStageMask
		sync.barrier.DstStageMask |= dep.DstStageMask
		sync.barrier.SrcAccessMask |= dep.SrcAccessMask
		sync.barrier.DstAccessMask |= dep.DstAccessMask

		if dep.SrcSubpass != vk.SubpassExternal {
			b.waitForResolvesFromSubpass(dep.SrcSubpass, sync)
		}
	}
}

// buildImplicitDependencies records the Vulkan-mandated implicit external
// dependencies. The flags are inert today: default memory visibility already
// covers them, but the bookkeeping is kept so a future change has it.
func (b *Builder) buildImplicitDependencies(dstSubpass uint32, sync *syncPointState) {
	if dstSubpass != vk.SubpassExternal {
		if b.subpasses[dstSubpass].hasFirstUseAttachments && !b.subpasses[dstSubpass].hasExternalIncoming {
			sync.barrier.Flags |= BarrierImplicitExternalIncoming
		}
		return
	}
	for srcSubpass := range b.subpasses {
		if b.subpasses[srcSubpass].hasFinalUseAttachments && !b.subpasses[srcSubpass].hasExternalOutgoing {
			sync.barrier.Flags |= BarrierImplicitExternalOutgoing
		}
	}
}

func (b *Builder) buildColorAttachmentReferences(subpass uint32, desc *vk.SubpassDescription) {
	sp := &b.subpasses[subpass]

	sp.bindTargets.ColorTargetCount = 0
	for i := range sp.bindTargets.ColorTargets {
		sp.bindTargets.ColorTargets[i] = AttachmentTarget{
			Attachment: vk.AttachmentUnused,
			Layout:     ImageLayout{Layout: vk.ImageLayoutUndefined},
		}
	}

	sp.bindTargets.ColorTargetCount = uint32(len(desc.PColorAttachments))

	for i := range desc.PColorAttachments {
		ref := &desc.PColorAttachments[i]
		layout := ImageLayout{Layout: ref.Layout}

		sp.bindTargets.ColorTargets[i] = AttachmentTarget{Attachment: ref.Attachment, Layout: layout}

		if ref.Attachment != vk.AttachmentUnused {
			b.trackAttachmentUsage(subpass, AttachRefColor, ref.Attachment, layout, &sp.syncTop)
		}
	}
}

func (b *Builder) buildDepthStencilAttachmentReferences(subpass uint32, desc *vk.SubpassDescription) {
	sp := &b.subpasses[subpass]

	sp.bindTargets.DepthStencil = AttachmentTarget{
		Attachment: vk.AttachmentUnused,
		Layout:     ImageLayout{Layout: vk.ImageLayoutUndefined},
	}

	ref := desc.PDepthStencilAttachment
	if ref == nil || ref.Attachment == vk.AttachmentUnused {
		return
	}

	layout := ImageLayout{Layout: ref.Layout}
	b.trackAttachmentUsage(subpass, AttachRefDepthStencil, ref.Attachment, layout, &sp.syncTop)
	sp.bindTargets.DepthStencil = AttachmentTarget{Attachment: ref.Attachment, Layout: layout}
}

// buildInputAttachmentReferences only transitions layouts. The hardware has
// no input-attachment state to program per subpass.
func (b *Builder) buildInputAttachmentReferences(subpass uint32, desc *vk.SubpassDescription) {
	sp := &b.subpasses[subpass]
	for i := range desc.PInputAttachments {
		ref := &desc.PInputAttachments[i]
		if ref.Attachment == vk.AttachmentUnused {
			continue
		}
		b.trackAttachmentUsage(subpass, AttachRefInput, ref.Attachment,
			ImageLayout{Layout: ref.Layout}, &sp.syncTop)
	}
}

func (b *Builder) buildResolveAttachmentReferences(subpass uint32) {
	sp := &b.subpasses[subpass]
	desc := sp.desc

	for i := range desc.PResolveAttachments {
		src := &desc.PColorAttachments[i]
		dst := &desc.PResolveAttachments[i]

		if src.Attachment == vk.AttachmentUnused || dst.Attachment == vk.AttachmentUnused {
			continue
		}

		srcLayout := ImageLayout{Layout: src.Layout, ExtraUsage: LayoutUsageResolveSrc}
		dstLayout := ImageLayout{Layout: dst.Layout, ExtraUsage: LayoutUsageResolveDst}

		b.trackAttachmentUsage(subpass, AttachRefResolveSrc, src.Attachment, srcLayout, &sp.syncPreResolve)
		b.trackAttachmentUsage(subpass, AttachRefResolveDst, dst.Attachment, dstLayout, &sp.syncPreResolve)

		sp.resolves = mem.Append(b.arena, sp.resolves, ResolveInfo{
			Src: AttachmentTarget{
				Attachment: src.Attachment,
				Layout:     b.attachments[src.Attachment].prevReferenceLayout,
			},
			Dst: AttachmentTarget{
				Attachment: dst.Attachment,
				Layout:     b.attachments[dst.Attachment].prevReferenceLayout,
			},
		})

		sp.syncPreResolve.barrier.Flags |= BarrierPreColorResolveSync

		b.attachments[src.Attachment].resolvesInFlight = true
		b.attachments[dst.Attachment].resolvesInFlight = true
	}
}

// trackAttachmentUsage records one reference to an attachment: it inserts a
// layout transition into the given sync point if the layout changed, and
// evaluates load ops on the attachment's first use. Transitions precede load
// ops within the same subpass.
func (b *Builder) trackAttachmentUsage(
	subpass uint32,
	refType AttachRef,
	attachment uint32,
	layout ImageLayout,
	sync *syncPointState,
) {
	at := &b.attachments[attachment]

	// Courtesy wait in case the application missed a dependency on an
	// attachment with an in-flight resolve.
	if at.resolvesInFlight && subpass != at.prevReferenceSubpass {
		b.log.Warn("attachment reused with a resolve in flight and no dependency",
			"attachment", attachment, "subpass", subpass)
		b.waitForResolves(sync)
	}

	if at.prevReferenceLayout != layout {
		transition := TransitionInfo{
			Attachment: attachment,
			PrevLayout: at.prevReferenceLayout,
			NextLayout: layout,
		}
		if subpass != vk.SubpassExternal && at.firstUseSubpass == subpass {
			transition.InitialTransition = true
		}
		sync.transitions = mem.Append(b.arena, sync.transitions, transition)
		at.prevReferenceLayout = layout
	}

	at.prevReferenceSubpass = subpass
	at.accumulatedRefMask |= refType

	if subpass != vk.SubpassExternal && at.firstUseSubpass == subpass && !at.loaded {
		b.buildLoadOps(subpass, attachment)
	}
}

// buildLoadOps evaluates an attachment's load ops on its first use and
// queues the resulting clears.
func (b *Builder) buildLoadOps(subpass, attachment uint32) {
	sp := &b.subpasses[subpass]
	at := &b.attachments[attachment]

	at.loaded = true

	var clearAspect vk.ImageAspectFlags
	if IsColorFormat(at.desc.Format) {
		if at.desc.LoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectColorBit)
		}
	} else {
		if HasDepth(at.desc.Format) && at.desc.LoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		}
		if HasStencil(at.desc.Format) && at.desc.StencilLoadOp == vk.AttachmentLoadOpClear {
			clearAspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
	}

	refMask := b.subpassReferenceMask(subpass, attachment)

	// A first reference that is nothing but a resolve destination will be
	// fully overwritten; clearing it would be redundant.
	if refMask == AttachRefResolveDst || clearAspect == 0 {
		return
	}

	clear := LoadOpClearInfo{
		Attachment: attachment,
		Layout:     at.prevReferenceLayout,
		Aspect:     clearAspect,
	}
	if IsColorFormat(at.desc.Format) {
		sp.colorClears = mem.Append(b.arena, sp.colorClears, clear)
	} else {
		sp.dsClears = mem.Append(b.arena, sp.dsClears, clear)
	}
}

// waitForResolvesFromSubpass makes sync wait for resolves whose producing
// subpass is the given one.
func (b *Builder) waitForResolvesFromSubpass(subpass uint32, sync *syncPointState) {
	for attachment := range b.attachments {
		if b.attachments[attachment].resolvesInFlight &&
			b.attachments[attachment].prevReferenceSubpass == subpass {
			// All in-flight resolves complete together; there is no
			// split-barrier support for waiting on a subset.
			b.waitForResolves(sync)
			break
		}
	}
}

// waitForResolves makes sync wait for every in-flight resolve and clears the
// in-flight flags.
func (b *Builder) waitForResolves(sync *syncPointState) {
	for attachment := range b.attachments {
		if b.attachments[attachment].resolvesInFlight {
			sync.barrier.Flags |= BarrierPostResolveSync
			b.attachments[attachment].resolvesInFlight = false
		}
	}
}

// buildEndState folds outgoing external dependencies, waits for straggler
// resolves, and forces every attachment into its declared final layout.
func (b *Builder) buildEndState() {
	b.buildSubpassDependencies(vk.SubpassExternal, &b.endSync)
	b.buildImplicitDependencies(vk.SubpassExternal, &b.endSync)

	// Safety net in case the application failed to add an external
	// dependency covering its resolves.
	b.waitForResolves(&b.endSync)

	for attachment := range b.attachments {
		finalLayout := ImageLayout{Layout: b.attachments[attachment].desc.FinalLayout}
		b.trackAttachmentUsage(vk.SubpassExternal, AttachRefExternalPostInstance,
			uint32(attachment), finalLayout, &b.endSync)
	}

	b.hasEndSyncPoint = isSyncPointActive(&b.endSync)
}

// isSyncPointActive reports whether a sync point must be emitted. All-zero
// sync points are skipped by the executor.
func isSyncPointActive(sync *syncPointState) bool {
	return sync.barrier.SrcStageMask != 0 ||
		sync.barrier.DstStageMask != 0 ||
		sync.barrier.SrcAccessMask != 0 ||
		sync.barrier.DstAccessMask != 0 ||
		sync.barrier.Flags != 0 ||
		len(sync.transitions) > 0
}

// finalize packs the accumulated build state into an ExecuteInfo. Each
// record kind shares one exactly-sized backing slice; the totals reserved up
// front must be consumed precisely.
func (b *Builder) finalize() *ExecuteInfo {
	var transitionCount, clearCount, resolveCount int
	for i := range b.subpasses {
		sp := &b.subpasses[i]
		transitionCount += len(sp.syncTop.transitions) +
			len(sp.syncPreResolve.transitions) +
			len(sp.syncBottom.transitions)
		clearCount += len(sp.colorClears) + len(sp.dsClears)
		resolveCount += len(sp.resolves)
	}
	transitionCount += len(b.endSync.transitions)

	transitions := make([]TransitionInfo, 0, transitionCount)
	clears := make([]LoadOpClearInfo, 0, clearCount)
	resolves := make([]ResolveInfo, 0, resolveCount)

	packSync := func(src *syncPointState) SyncPointInfo {
		start := len(transitions)
		transitions = append(transitions, src.transitions...)
		return SyncPointInfo{
			Barrier:     src.barrier,
			Transitions: transitions[start:len(transitions):len(transitions)],
		}
	}
	packClears := func(src []LoadOpClearInfo) []LoadOpClearInfo {
		start := len(clears)
		clears = append(clears, src...)
		return clears[start:len(clears):len(clears)]
	}

	out := &ExecuteInfo{Subpasses: make([]SubpassExecuteInfo, len(b.subpasses))}

	for i := range b.subpasses {
		sp := &b.subpasses[i]
		dst := &out.Subpasses[i]

		dst.Begin.HasTopSyncPoint = sp.hasTopSyncPoint
		dst.Begin.SyncTop = packSync(&sp.syncTop)
		dst.Begin.ColorClears = packClears(sp.colorClears)
		dst.Begin.DsClears = packClears(sp.dsClears)
		dst.Begin.BindTargets = sp.bindTargets

		dst.End.HasPreResolveSyncPoint = sp.hasPreResolveSyncPoint
		dst.End.HasBottomSyncPoint = sp.hasBottomSyncPoint
		dst.End.SyncPreResolve = packSync(&sp.syncPreResolve)

		start := len(resolves)
		resolves = append(resolves, sp.resolves...)
		dst.End.Resolves = resolves[start:len(resolves):len(resolves)]

		dst.End.SyncBottom = packSync(&sp.syncBottom)
	}

	out.End.HasEndSyncPoint = b.hasEndSyncPoint
	out.End.SyncEnd = packSync(&b.endSync)

	if len(transitions) != transitionCount || len(clears) != clearCount || len(resolves) != resolveCount {
		panic("renderpass: finalize consumed a different size than it reserved")
	}

	return out
}

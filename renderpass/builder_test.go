// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package renderpass

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/npcdoom/xgl/mem"
)

func buildPlan(t *testing.T, info *vk.RenderPassCreateInfo) *ExecuteInfo {
	t.Helper()
	plan, err := NewBuilder(mem.NewArena(), nil).Build(info)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return plan
}

func colorAttachment(load vk.AttachmentLoadOp, initial, final vk.ImageLayout) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         vk.FormatR8g8b8a8Unorm,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         load,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    final,
	}
}

func TestBuildSingleSubpassClear(t *testing.T) {
	colorRef := []vk.AttachmentReference{
		{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
	}
	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{
			colorAttachment(vk.AttachmentLoadOpClear, vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc),
		},
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint: vk.PipelineBindPointGraphics,
			PColorAttachments: colorRef,
		}},
	}

	plan := buildPlan(t, info)
	if len(plan.Subpasses) != 1 {
		t.Fatalf("plan has %d subpasses, want 1", len(plan.Subpasses))
	}

	begin := &plan.Subpasses[0].Begin
	if !begin.HasTopSyncPoint {
		t.Error("top sync point inactive")
	}
	if len(begin.SyncTop.Transitions) != 1 {
		t.Fatalf("got %d top transitions, want 1", len(begin.SyncTop.Transitions))
	}
	tr := begin.SyncTop.Transitions[0]
	if tr.Attachment != 0 || !tr.InitialTransition {
		t.Errorf("transition = %+v, want initial transition of attachment 0", tr)
	}
	if tr.PrevLayout.Layout != vk.ImageLayoutUndefined ||
		tr.NextLayout.Layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("transition layouts = %+v", tr)
	}
	// No explicit external dependency, so the implicit one is recorded.
	if begin.SyncTop.Barrier.Flags&BarrierImplicitExternalIncoming == 0 {
		t.Error("implicit incoming dependency not recorded")
	}

	if len(begin.ColorClears) != 1 || len(begin.DsClears) != 0 {
		t.Fatalf("clears = %d color, %d depth-stencil", len(begin.ColorClears), len(begin.DsClears))
	}
	clear := begin.ColorClears[0]
	if clear.Attachment != 0 ||
		clear.Layout.Layout != vk.ImageLayoutColorAttachmentOptimal ||
		clear.Aspect != vk.ImageAspectFlags(vk.ImageAspectColorBit) {
		t.Errorf("clear = %+v", clear)
	}

	if begin.BindTargets.ColorTargetCount != 1 {
		t.Fatalf("color target count = %d", begin.BindTargets.ColorTargetCount)
	}
	if target := begin.BindTargets.ColorTargets[0]; target.Attachment != 0 ||
		target.Layout.Layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("color target 0 = %+v", target)
	}
	for i := 1; i < MaxColorTargets; i++ {
		if begin.BindTargets.ColorTargets[i].Attachment != vk.AttachmentUnused {
			t.Errorf("color target %d = %+v, want unused", i, begin.BindTargets.ColorTargets[i])
		}
	}
	if begin.BindTargets.DepthStencil.Attachment != vk.AttachmentUnused {
		t.Errorf("depth-stencil target = %+v, want unused", begin.BindTargets.DepthStencil)
	}

	end := &plan.Subpasses[0].End
	if end.HasPreResolveSyncPoint || end.HasBottomSyncPoint || len(end.Resolves) != 0 {
		t.Errorf("subpass end = %+v, want empty", end)
	}

	if !plan.End.HasEndSyncPoint {
		t.Fatal("end sync point inactive")
	}
	if len(plan.End.SyncEnd.Transitions) != 1 {
		t.Fatalf("got %d end transitions, want 1", len(plan.End.SyncEnd.Transitions))
	}
	final := plan.End.SyncEnd.Transitions[0]
	if final.PrevLayout.Layout != vk.ImageLayoutColorAttachmentOptimal ||
		final.NextLayout.Layout != vk.ImageLayoutPresentSrc ||
		final.InitialTransition {
		t.Errorf("final transition = %+v", final)
	}
}

func TestBuildNoRedundantTransitions(t *testing.T) {
	// Layout never changes and explicit zero dependencies suppress the
	// implicit ones, so every sync point stays inactive.
	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{
			colorAttachment(vk.AttachmentLoadOpDontCare,
				vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal),
		},
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint: vk.PipelineBindPointGraphics,
			PColorAttachments: []vk.AttachmentReference{
				{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
			},
		}},
		PDependencies: []vk.SubpassDependency{
			{SrcSubpass: vk.SubpassExternal, DstSubpass: 0},
			{SrcSubpass: 0, DstSubpass: vk.SubpassExternal},
		},
	}

	plan := buildPlan(t, info)
	begin := &plan.Subpasses[0].Begin
	if begin.HasTopSyncPoint {
		t.Errorf("top sync point active: %+v", begin.SyncTop)
	}
	if len(begin.ColorClears) != 0 {
		t.Errorf("got %d clears, want 0", len(begin.ColorClears))
	}
	if plan.End.HasEndSyncPoint {
		t.Errorf("end sync point active: %+v", plan.End.SyncEnd)
	}
}

func TestBuildResolve(t *testing.T) {
	msaa := colorAttachment(vk.AttachmentLoadOpClear,
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
	msaa.Samples = vk.SampleCount4Bit
	// The resolve destination asks for a clear it must not get: the resolve
	// overwrites it entirely.
	dst := colorAttachment(vk.AttachmentLoadOpClear,
		vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc)

	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{msaa, dst},
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint: vk.PipelineBindPointGraphics,
			PColorAttachments: []vk.AttachmentReference{
				{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
			},
			PResolveAttachments: []vk.AttachmentReference{
				{Attachment: 1, Layout: vk.ImageLayoutColorAttachmentOptimal},
			},
		}},
	}

	plan := buildPlan(t, info)
	begin := &plan.Subpasses[0].Begin
	if len(begin.ColorClears) != 1 || begin.ColorClears[0].Attachment != 0 {
		t.Errorf("clears = %+v, want only the multisampled attachment", begin.ColorClears)
	}

	end := &plan.Subpasses[0].End
	if !end.HasPreResolveSyncPoint {
		t.Fatal("pre-resolve sync point inactive")
	}
	if end.SyncPreResolve.Barrier.Flags&BarrierPreColorResolveSync == 0 {
		t.Error("pre-resolve barrier flag missing")
	}
	if len(end.Resolves) != 1 {
		t.Fatalf("got %d resolves, want 1", len(end.Resolves))
	}
	resolve := end.Resolves[0]
	if resolve.Src.Attachment != 0 || resolve.Src.Layout.ExtraUsage != LayoutUsageResolveSrc {
		t.Errorf("resolve source = %+v", resolve.Src)
	}
	if resolve.Dst.Attachment != 1 || resolve.Dst.Layout.ExtraUsage != LayoutUsageResolveDst {
		t.Errorf("resolve destination = %+v", resolve.Dst)
	}

	// Both attachments shift into their resolve layouts at the pre-resolve
	// sync point; the destination's is its first use.
	if len(end.SyncPreResolve.Transitions) != 2 {
		t.Fatalf("got %d pre-resolve transitions, want 2", len(end.SyncPreResolve.Transitions))
	}
	if tr := end.SyncPreResolve.Transitions[1]; tr.Attachment != 1 || !tr.InitialTransition {
		t.Errorf("destination transition = %+v", tr)
	}

	// No dependency covers the resolve, so the end of the pass waits for it.
	if plan.End.SyncEnd.Barrier.Flags&BarrierPostResolveSync == 0 {
		t.Error("end state does not wait for the in-flight resolve")
	}
	if len(plan.End.SyncEnd.Transitions) != 2 {
		t.Errorf("got %d end transitions, want 2", len(plan.End.SyncEnd.Transitions))
	}
}

func TestBuildResolveCourtesyWait(t *testing.T) {
	msaa := colorAttachment(vk.AttachmentLoadOpDontCare,
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)
	msaa.Samples = vk.SampleCount4Bit
	dst := colorAttachment(vk.AttachmentLoadOpDontCare,
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal)

	// Subpass 1 samples the resolve destination without declaring a
	// dependency on subpass 0.
	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{msaa, dst},
		PSubpasses: []vk.SubpassDescription{
			{
				PipelineBindPoint: vk.PipelineBindPointGraphics,
				PColorAttachments: []vk.AttachmentReference{
					{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
				},
				PResolveAttachments: []vk.AttachmentReference{
					{Attachment: 1, Layout: vk.ImageLayoutColorAttachmentOptimal},
				},
			},
			{
				PipelineBindPoint: vk.PipelineBindPointGraphics,
				PInputAttachments: []vk.AttachmentReference{
					{Attachment: 1, Layout: vk.ImageLayoutShaderReadOnlyOptimal},
				},
			},
		},
	}

	plan := buildPlan(t, info)
	top := &plan.Subpasses[1].Begin.SyncTop
	if top.Barrier.Flags&BarrierPostResolveSync == 0 {
		t.Error("second subpass does not wait for the in-flight resolve")
	}
	// Once waited on, the end state has nothing left to wait for.
	if plan.End.SyncEnd.Barrier.Flags&BarrierPostResolveSync != 0 {
		t.Error("end state waits for an already-completed resolve")
	}
}

func TestBuildDependencyFolding(t *testing.T) {
	att := colorAttachment(vk.AttachmentLoadOpClear,
		vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal)

	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{att},
		PSubpasses: []vk.SubpassDescription{
			{
				PipelineBindPoint: vk.PipelineBindPointGraphics,
				PColorAttachments: []vk.AttachmentReference{
					{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
				},
			},
			{
				PipelineBindPoint: vk.PipelineBindPointGraphics,
				PInputAttachments: []vk.AttachmentReference{
					{Attachment: 0, Layout: vk.ImageLayoutShaderReadOnlyOptimal},
				},
			},
		},
		PDependencies: []vk.SubpassDependency{
			{
				SrcSubpass:    0,
				DstSubpass:    1,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
				DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			},
			{
				SrcSubpass:   0,
				DstSubpass:   1,
				SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				DstStageMask: vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			},
		},
	}

	plan := buildPlan(t, info)
	barrier := plan.Subpasses[1].Begin.SyncTop.Barrier

	wantSrc := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	if barrier.SrcStageMask != wantSrc {
		t.Errorf("folded source stages = %#x, want %#x", barrier.SrcStageMask, wantSrc)
	}
	if barrier.DstStageMask != vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) {
		t.Errorf("folded destination stages = %#x", barrier.DstStageMask)
	}
	if barrier.SrcAccessMask != vk.AccessFlags(vk.AccessColorAttachmentWriteBit) ||
		barrier.DstAccessMask != vk.AccessFlags(vk.AccessShaderReadBit) {
		t.Errorf("folded access masks = %#x -> %#x", barrier.SrcAccessMask, barrier.DstAccessMask)
	}

	// The attachment moves to its read layout when the second subpass first
	// references it; that is not its initial transition.
	transitions := plan.Subpasses[1].Begin.SyncTop.Transitions
	if len(transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(transitions))
	}
	if tr := transitions[0]; tr.NextLayout.Layout != vk.ImageLayoutShaderReadOnlyOptimal ||
		tr.InitialTransition {
		t.Errorf("transition = %+v", tr)
	}
}

func TestBuildDepthStencilClears(t *testing.T) {
	ds := vk.AttachmentDescription{
		Format:         vk.FormatD24UnormS8Uint,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpClear,
		StencilStoreOp: vk.AttachmentStoreOpStore,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	dsRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}

	info := &vk.RenderPassCreateInfo{
		PAttachments: []vk.AttachmentDescription{ds},
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			PDepthStencilAttachment: &dsRef,
		}},
	}

	plan := buildPlan(t, info)
	begin := &plan.Subpasses[0].Begin
	if len(begin.ColorClears) != 0 || len(begin.DsClears) != 1 {
		t.Fatalf("clears = %d color, %d depth-stencil", len(begin.ColorClears), len(begin.DsClears))
	}
	// Only the stencil aspect asked to be cleared.
	if aspect := begin.DsClears[0].Aspect; aspect != vk.ImageAspectFlags(vk.ImageAspectStencilBit) {
		t.Errorf("clear aspect = %#x, want stencil only", aspect)
	}
	if begin.BindTargets.DepthStencil.Attachment != 0 ||
		begin.BindTargets.DepthStencil.Layout.Layout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		t.Errorf("depth-stencil target = %+v", begin.BindTargets.DepthStencil)
	}
	if begin.BindTargets.ColorTargetCount != 0 {
		t.Errorf("color target count = %d, want 0", begin.BindTargets.ColorTargetCount)
	}
}

func TestBuildRejectsBadCreateInfo(t *testing.T) {
	base := func() *vk.RenderPassCreateInfo {
		return &vk.RenderPassCreateInfo{
			PAttachments: []vk.AttachmentDescription{
				colorAttachment(vk.AttachmentLoadOpClear,
					vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc),
			},
			PSubpasses: []vk.SubpassDescription{{
				PipelineBindPoint: vk.PipelineBindPointGraphics,
				PColorAttachments: []vk.AttachmentReference{
					{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
				},
			}},
		}
	}

	badDep := base()
	badDep.PDependencies = []vk.SubpassDependency{{SrcSubpass: 5, DstSubpass: 0}}
	if _, err := NewBuilder(mem.NewArena(), nil).Build(badDep); !errors.Is(err, ErrInvalidCreateInfo) {
		t.Errorf("out-of-range dependency: error = %v, want ErrInvalidCreateInfo", err)
	}

	tooMany := base()
	refs := make([]vk.AttachmentReference, MaxColorTargets+1)
	for i := range refs {
		refs[i] = vk.AttachmentReference{Attachment: vk.AttachmentUnused}
	}
	tooMany.PSubpasses[0].PColorAttachments = refs
	if _, err := NewBuilder(mem.NewArena(), nil).Build(tooMany); !errors.Is(err, ErrInvalidCreateInfo) {
		t.Errorf("too many color targets: error = %v, want ErrInvalidCreateInfo", err)
	}
}

func TestAttachRefPredicates(t *testing.T) {
	if !ReadsFromAttachment(AttachRefInput | AttachRefColor) {
		t.Error("input reference does not read")
	}
	if ReadsFromAttachment(AttachRefColor | AttachRefPreserve) {
		t.Error("color/preserve reference reads")
	}
	if !WritesToAttachment(AttachRefResolveDst) {
		t.Error("resolve destination does not write")
	}
	if WritesToAttachment(AttachRefInput | AttachRefResolveSrc) {
		t.Error("read-only reference writes")
	}
}

// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package llpc

// NodeKind tags a resource mapping node.
type NodeKind int

const (
	// NodeDescTablePtr is a pointer to a nested descriptor table; the node
	// carries child nodes describing the table's contents.
	NodeDescTablePtr NodeKind = iota

	// NodeIndirectUserDataPtr is a pointer to driver-managed indirect user
	// data, used for the vertex buffer table. It is never spilled.
	NodeIndirectUserDataPtr

	// NodePushConst holds push constant dwords directly in registers.
	NodePushConst

	NodeDescResource
	NodeDescSampler
	NodeDescCombinedTexture
	NodeDescTexelBuffer
	NodeDescFmask
	NodeDescBuffer
	NodeDescBufferCompact
)

// isDescriptorKind reports whether k names a plain descriptor range, as
// opposed to a table pointer, indirect pointer, or push constant.
func (k NodeKind) isDescriptorKind() bool {
	switch k {
	case NodeDescResource, NodeDescSampler, NodeDescCombinedTexture,
		NodeDescTexelBuffer, NodeDescFmask, NodeDescBuffer, NodeDescBufferCompact:
		return true
	}
	return false
}

// ResourceMappingNode describes where one resource binding lives in the
// user-data layout. Table-pointer nodes form a forest via Children.
type ResourceMappingNode struct {
	Kind NodeKind

	// Set and Binding identify the descriptor range for descriptor kinds.
	Set     uint32
	Binding uint32

	// OffsetInDwords and SizeInDwords locate the node within the
	// declared user-data layout.
	OffsetInDwords uint32
	SizeInDwords   uint32

	// Children holds the nested table contents for NodeDescTablePtr.
	Children []ResourceMappingNode
}

// DescriptorPair identifies one descriptor binding referenced by a stage.
type DescriptorPair struct {
	Set     uint32
	Binding uint32
}

// ResourceUsage summarizes what a compiled stage actually references. It is
// produced by the codegen stage and consumed read-only here.
type ResourceUsage struct {
	PushConstSizeInBytes uint32

	// Descriptors is the set of descriptor bindings referenced by the
	// stage's code.
	Descriptors map[DescriptorPair]bool

	Builtins BuiltinUsage
}

func (u *ResourceUsage) usesDescriptor(set, binding uint32) bool {
	return u.Descriptors[DescriptorPair{Set: set, Binding: binding}]
}

// BuiltinUsage records which built-in inputs a stage references. Only the
// fields that influence the argument layout are tracked; stages whose
// argument lists are fixed (fragment, geometry) need no flags.
type BuiltinUsage struct {
	Vs VsBuiltinUsage
	Cs CsBuiltinUsage
}

type VsBuiltinUsage struct {
	VertexIndex   bool
	InstanceIndex bool
	PrimitiveID   bool
	BaseVertex    bool
	BaseInstance  bool
	DrawIndex     bool
}

type CsBuiltinUsage struct {
	NumWorkgroups bool
}

// nodeActive reports whether any descriptor beneath node is referenced by
// the stage. Traversal uses an explicit stack; the forest is acyclic but has
// no depth bound.
func nodeActive(node *ResourceMappingNode, usage *ResourceUsage) bool {
	stack := []*ResourceMappingNode{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Kind {
		case NodePushConst:
			if usage.PushConstSizeInBytes > 0 {
				return true
			}
		case NodeDescTablePtr:
			for i := range n.Children {
				stack = append(stack, &n.Children[i])
			}
		case NodeIndirectUserDataPtr:
			// Indirect user data is always considered active.
			return true
		default:
			if usage.usesDescriptor(n.Set, n.Binding) {
				return true
			}
		}
	}
	return false
}

// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package renderpass

import vk "github.com/goki/vulkan"

// HasDepth reports whether a format carries a depth aspect.
func HasDepth(f vk.Format) bool {
	switch f {
	case vk.FormatD16Unorm, vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat,
		vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// HasStencil reports whether a format carries a stencil aspect.
func HasStencil(f vk.Format) bool {
	switch f {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint,
		vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// IsColorFormat reports whether a format is a color format. Depth, stencil,
// and the undefined format are not.
func IsColorFormat(f vk.Format) bool {
	return f != vk.FormatUndefined && !HasDepth(f) && !HasStencil(f)
}

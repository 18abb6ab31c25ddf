// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package calls

import (
	"github.com/gfxtrace/vkreplay/vulkan/driver"
	"github.com/gfxtrace/vkreplay/vulkan/serialize"
)

func rect(s *serialize.Serializer, name string, r *driver.Rect2D) {
	s.Struct(name, func(s *serialize.Serializer) {
		s.I32("x", &r.Offset.X)
		s.I32("y", &r.Offset.Y)
		s.U32("width", &r.Extent.Width)
		s.U32("height", &r.Extent.Height)
	})
}

func viewport(s *serialize.Serializer, v *driver.Viewport) {
	s.Struct("viewport", func(s *serialize.Serializer) {
		s.F32("x", &v.X)
		s.F32("y", &v.Y)
		s.F32("width", &v.Width)
		s.F32("height", &v.Height)
		s.F32("minDepth", &v.MinDepth)
		s.F32("maxDepth", &v.MaxDepth)
	})
}

func color(s *serialize.Serializer, name string, c *[4]float32) {
	serialize.Floats(s, name, c[:])
}

func samplerInfo(s *serialize.Serializer, i *driver.SamplerCreateInfo) {
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		s.U32("magFilter", &i.MagFilter)
		s.U32("minFilter", &i.MinFilter)
		s.U32("mipmapMode", &i.MipmapMode)
		s.U32("addressModeU", &i.AddressModeU)
		s.U32("addressModeV", &i.AddressModeV)
		s.U32("addressModeW", &i.AddressModeW)
		s.F32("mipLodBias", &i.MipLodBias)
		s.F32("maxAnisotropy", &i.MaxAnisotropy)
		s.F32("minLod", &i.MinLod)
		s.F32("maxLod", &i.MaxLod)
		s.U32("borderColor", &i.BorderColor)
	})
}

func renderPassInfo(s *serialize.Serializer, i *driver.RenderPassCreateInfo) {
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		serialize.Array(s, "pAttachments", &i.Attachments, func(s *serialize.Serializer, a *driver.AttachmentDescription) {
			serialize.Value(s, "format", &a.Format)
			s.U32("samples", &a.Samples)
			s.U32("loadOp", &a.LoadOp)
			s.U32("storeOp", &a.StoreOp)
		})
		serialize.Array(s, "pSubpasses", &i.Subpasses, func(s *serialize.Serializer, p *driver.SubpassDescription) {
			serialize.Array(s, "pColorAttachments", &p.ColorAttachments, func(s *serialize.Serializer, a *uint32) {
				s.U32("attachment", a)
			})
			s.U32("depthAttachment", &p.DepthAttachment)
		})
	})
}

func bufferInfo(s *serialize.Serializer, i *driver.BufferCreateInfo) {
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		s.U64("size", &i.Size)
		s.U32("usage", &i.Usage)
	})
}

func imageInfo(s *serialize.Serializer, i *driver.ImageCreateInfo) {
	s.Struct("CreateInfo", func(s *serialize.Serializer) {
		serialize.Value(s, "format", &i.Format)
		s.U32("width", &i.Width)
		s.U32("height", &i.Height)
		s.U32("mipLevels", &i.MipLevels)
		s.U32("arrayLayers", &i.Layers)
		s.U32("samples", &i.Samples)
		s.U32("usage", &i.Usage)
	})
}

func bindings(s *serialize.Serializer, name string, v *[]driver.DescriptorBinding) {
	serialize.Array(s, name, v, func(s *serialize.Serializer, b *driver.DescriptorBinding) {
		s.U32("binding", &b.Binding)
		serialize.Value(s, "descriptorType", &b.Type)
		s.U32("descriptorCount", &b.Count)
	})
}

func stage(s *serialize.Serializer, st *driver.ShaderStage) {
	s.U32("stage", &st.Stage)
	s.String("pName", &st.Entry)
	serialize.Array(s, "pCode", &st.Code, func(s *serialize.Serializer, w *uint32) { s.U32("", w) })
}

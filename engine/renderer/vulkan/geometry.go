package vulkan

import (
	"encoding/binary"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/mesh"
)

// VulkanMesh is a mesh uploaded to device addressable buffers. Positions and
// indices feed both the rasterizer and the bottom level build; the hit
// shader reads indices and normals through the addresses packed into its
// shader binding table record.
type VulkanMesh struct {
	VertexBuffer *VulkanBuffer
	NormalBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer

	VertexAddress uint64
	NormalAddress uint64
	IndexAddress  uint64

	VertexCount   uint32
	IndexCount    uint32
	TriangleCount uint32
}

func packVec3s(vecs [][3]float32) []byte {
	raw := make([]byte, len(vecs)*12)
	for i, v := range vecs {
		binary.LittleEndian.PutUint32(raw[i*12:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(raw[i*12+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(raw[i*12+8:], math.Float32bits(v[2]))
	}
	return raw
}

func packIndices(indices []uint32) []byte {
	raw := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(raw[i*4:], idx)
	}
	return raw
}

// MeshUpload validates the mesh and moves it into device local buffers
// through staging copies.
func MeshUpload(context *VulkanContext, name string, m *mesh.Mesh) (*VulkanMesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	gpuMesh := &VulkanMesh{
		VertexCount:   uint32(m.NumVertices()),
		IndexCount:    uint32(len(m.Indices())),
		TriangleCount: uint32(m.NumTriangles()),
	}

	usage := vk.BufferUsageFlags(
		vk.BufferUsageStorageBufferBit |
			vk.BufferUsageTransferDstBit |
			vk.BufferUsageShaderDeviceAddressBit |
			vk.BufferUsageAccelerationStructureBuildInputReadOnlyBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

	normalsSrc := m.Normals()
	if !m.HasVertexNormals() {
		normalsSrc = m.FlatNormals()
	}
	positions := make([][3]float32, m.NumVertices())
	normals := make([][3]float32, m.NumVertices())
	for i, p := range m.Positions() {
		positions[i] = [3]float32{p.X(), p.Y(), p.Z()}
	}
	for i, n := range normalsSrc {
		normals[i] = [3]float32{n.X(), n.Y(), n.Z()}
	}

	upload := func(bufName string, raw []byte, extraUsage vk.BufferUsageFlags) (*VulkanBuffer, uint64, error) {
		buffer, err := BufferCreate(context, bufName, vk.DeviceSize(len(raw)), usage|extraUsage, deviceLocal)
		if err != nil {
			return nil, 0, err
		}
		if err := UploadThroughStaging(context, buffer, raw); err != nil {
			return nil, 0, err
		}
		address, err := buffer.DeviceAddress(context)
		if err != nil {
			return nil, 0, err
		}
		return buffer, address, nil
	}

	var err error
	gpuMesh.VertexBuffer, gpuMesh.VertexAddress, err = upload(
		name+" positions", packVec3s(positions), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	gpuMesh.NormalBuffer, gpuMesh.NormalAddress, err = upload(
		name+" normals", packVec3s(normals), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	gpuMesh.IndexBuffer, gpuMesh.IndexAddress, err = upload(
		name+" indices", packIndices(m.Indices()), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return nil, err
	}

	core.LogInfo("Uploaded mesh %q: %d vertices, %d triangles.", name, gpuMesh.VertexCount, gpuMesh.TriangleCount)
	return gpuMesh, nil
}

package render

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/engine/shader"
	"github.com/Faultbox/terrain3d/internal/engine/viewport"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/terrain"
	"github.com/Faultbox/terrain3d/pkg/math"
)

// TerrainRenderer draws one terrain mesh with its layered material.
type TerrainRenderer struct {
	program *shader.Program

	locViewProj   int32
	locLayers     int32
	locWeight     int32
	locBlend      int32
	locLayerCount int32
	locShading    int32
	locLightDir   int32

	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32

	// textures[i] backs layer i of material; 0 for an empty layer.
	textures [MaxLayers]uint32
	material *terrain.Material

	Shading  bool
	LightDir [3]float32
}

// NewTerrainRenderer compiles the terrain program.
func NewTerrainRenderer() (*TerrainRenderer, error) {
	p, err := shader.New(terrainVertexShader, terrainFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}

	return &TerrainRenderer{
		program:       p,
		locViewProj:   p.Uniform("uViewProj"),
		locLayers:     p.Uniform("uLayers"),
		locWeight:     p.Uniform("uWeight"),
		locBlend:      p.Uniform("uBlend"),
		locLayerCount: p.Uniform("uLayerCount"),
		locShading:    p.Uniform("uShading"),
		locLightDir:   p.Uniform("uLightDir"),
		LightDir:      [3]float32{1, 1, 0.5},
	}, nil
}

// Load replaces the mesh and material. The previous GPU resources are
// released first. Textures are uploaded once here; later visibility and
// opacity changes only touch uniforms.
func (tr *TerrainRenderer) Load(mesh *terrain.Mesh, material *terrain.Material) {
	tr.clear()
	if mesh == nil || len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return
	}

	tr.uploadMesh(mesh)

	layers := material.Layers()
	for i, l := range layers {
		if i == MaxLayers {
			logger.Warn("material has more layers than the shader supports",
				zap.Int("layers", len(layers)), zap.Int("max", MaxLayers))
			break
		}
		if l.Texture != nil {
			tr.textures[i] = uploadTexture(l.Texture, true)
		}
	}
	tr.material = material

	logger.Debug("terrain uploaded",
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("layers", len(layers)),
	)
}

func (tr *TerrainRenderer) uploadMesh(mesh *terrain.Mesh) {
	gl.GenVertexArrays(1, &tr.vao)
	gl.BindVertexArray(tr.vao)

	gl.GenBuffers(1, &tr.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, tr.vbo)
	vertexSize := int(unsafe.Sizeof(terrain.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*vertexSize, unsafe.Pointer(&mesh.Vertices[0]), gl.STATIC_DRAW)

	// Position (location 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(vertexSize), 0)
	gl.EnableVertexAttribArray(0)

	// Normal (location 1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, int32(vertexSize), 3*4)
	gl.EnableVertexAttribArray(1)

	// TexCoord (location 2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, int32(vertexSize), 6*4)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &tr.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, tr.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.STATIC_DRAW)
	tr.indexCount = int32(len(mesh.Indices))

	gl.BindVertexArray(0)
}

// Render draws the terrain. Layer state is read from the material on every
// call.
func (tr *TerrainRenderer) Render(viewProj math.Mat4) {
	if tr.vao == 0 || tr.material == nil {
		return
	}

	state := viewport.Layers(tr.material.Layers())

	tr.program.Use()
	gl.UniformMatrix4fv(tr.locViewProj, 1, false, &viewProj[0])

	units := [MaxLayers]int32{}
	for i := 0; i < MaxLayers; i++ {
		units[i] = int32(i)
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, tr.textures[i])
	}
	gl.Uniform1iv(tr.locLayers, MaxLayers, &units[0])
	gl.Uniform1fv(tr.locWeight, MaxLayers, &state.Weight[0])
	gl.Uniform1iv(tr.locBlend, MaxLayers, &state.Blend[0])
	gl.Uniform1i(tr.locLayerCount, state.Count)

	if tr.Shading {
		gl.Uniform1i(tr.locShading, 1)
	} else {
		gl.Uniform1i(tr.locShading, 0)
	}
	gl.Uniform3f(tr.locLightDir, tr.LightDir[0], tr.LightDir[1], tr.LightDir[2])

	gl.BindVertexArray(tr.vao)
	gl.DrawElements(gl.TRIANGLES, tr.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
	gl.ActiveTexture(gl.TEXTURE0)
}

func (tr *TerrainRenderer) clear() {
	if tr.vao != 0 {
		gl.DeleteVertexArrays(1, &tr.vao)
		tr.vao = 0
	}
	if tr.vbo != 0 {
		gl.DeleteBuffers(1, &tr.vbo)
		tr.vbo = 0
	}
	if tr.ebo != 0 {
		gl.DeleteBuffers(1, &tr.ebo)
		tr.ebo = 0
	}
	for i := range tr.textures {
		deleteTexture(&tr.textures[i])
	}
	tr.indexCount = 0
	tr.material = nil
}

// Destroy releases all resources.
func (tr *TerrainRenderer) Destroy() {
	tr.clear()
	tr.program.Delete()
}

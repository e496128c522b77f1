package voxelvk

import (
	"encoding/binary"
	"math"

	lin "github.com/xlab/linmath"
)

// VulkanProjectionMat converts an OpenGL style projection matrix to Vulkan style projection matrix.
// Vulkan has a topLeft clipSpace with [0, 1] depth range instead of [-1, 1].
//
// linmath outputs projection matrices in GL style clipSpace,
// perform a simple fixup step to change the projection to Vulkan style.
func VulkanProjectionMat(m *lin.Mat4x4, proj *lin.Mat4x4) {
	// Flip Y in clipspace. X = -1, Y = -1 is topLeft in Vulkan.
	// Z depth is [0, 1] range instead of [-1, 1], z' = z/2 + w/2.
	clip := lin.Mat4x4{
		{1, 0, 0, 0},
		{0, -1, 0, 0},
		{0, 0, 0.5, 0},
		{0, 0, 0.5, 1},
	}
	m.Mult(&clip, proj)
}

const maxPitch = 89.0

//Camera is a free flying y-up camera, angles in degrees
type Camera struct {
	Position lin.Vec3
	Yaw      float32
	Pitch    float32
	Fov      float32
	Near     float32
	Far      float32
}

//NewCamera looks down -z from position
func NewCamera(position lin.Vec3) *Camera {
	return &Camera{Position: position, Fov: 70, Near: 0.1, Far: 500}
}

//Forward is the unit view direction
func (c *Camera) Forward() lin.Vec3 {
	yaw := float64(lin.DegreesToRadians(c.Yaw))
	pitch := float64(lin.DegreesToRadians(c.Pitch))
	return lin.Vec3{
		float32(math.Cos(pitch) * math.Sin(yaw)),
		float32(math.Sin(pitch)),
		float32(-math.Cos(pitch) * math.Cos(yaw)),
	}
}

//Right is the unit vector to the right of the view direction, parallel to the ground
func (c *Camera) Right() lin.Vec3 {
	yaw := float64(lin.DegreesToRadians(c.Yaw))
	return lin.Vec3{float32(math.Cos(yaw)), 0, float32(math.Sin(yaw))}
}

//Look turns the camera, pitch stays short of straight up or down
func (c *Camera) Look(yaw, pitch float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+yaw), 360))
	c.Pitch += pitch
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	}
	if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}
}

//Move travels forward, right and up in view space
func (c *Camera) Move(forward, right, up float32) {
	f, r := c.Forward(), c.Right()
	var step lin.Vec3
	for i := range step {
		step[i] = f[i]*forward + r[i]*right
	}
	step[1] += up
	c.Position.Add(&c.Position, &step)
}

//View is the world to view matrix
func (c *Camera) View() lin.Mat4x4 {
	f := c.Forward()
	var center lin.Vec3
	center.Add(&c.Position, &f)
	var view lin.Mat4x4
	view.LookAt(&c.Position, &center, &lin.Vec3{0, 1, 0})
	return view
}

//Projection is the vulkan clip space perspective for aspect
func (c *Camera) Projection(aspect float32) lin.Mat4x4 {
	var gl, proj lin.Mat4x4
	gl.Perspective(lin.DegreesToRadians(c.Fov), aspect, c.Near, c.Far)
	VulkanProjectionMat(&proj, &gl)
	return proj
}

//ViewProjection is Projection times View
func (c *Camera) ViewProjection(aspect float32) lin.Mat4x4 {
	proj, view := c.Projection(aspect), c.View()
	var m lin.Mat4x4
	m.Mult(&proj, &view)
	return m
}

//RaymarchConstantsSize is the size of the raymarch push constant block
const RaymarchConstantsSize = 96

//RaymarchConstants is the raymarch shader block: resolution padded to 16 bytes, the view
//projection matrix in column major order and the camera position with w zero
type RaymarchConstants struct {
	Resolution [2]float32
	Matrix     lin.Mat4x4
	Position   lin.Vec4
}

//PushConstants builds the block for a render target of width by height
func (c *Camera) PushConstants(width, height uint32) RaymarchConstants {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return RaymarchConstants{
		Resolution: [2]float32{float32(width), float32(height)},
		Matrix:     c.ViewProjection(aspect),
		Position:   lin.Vec4{c.Position[0], c.Position[1], c.Position[2], 0},
	}
}

//Bytes lays the block out in std430 order
func (p RaymarchConstants) Bytes() []byte {
	out := make([]byte, RaymarchConstantsSize)
	put := func(at int, v float32) {
		binary.LittleEndian.PutUint32(out[at:], math.Float32bits(v))
	}
	put(0, p.Resolution[0])
	put(4, p.Resolution[1])
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			put(16+col*16+row*4, p.Matrix[col][row])
		}
	}
	for i := 0; i < 4; i++ {
		put(80+i*4, p.Position[i])
	}
	return out
}

package render

import "github.com/Faultbox/terrain3d/internal/engine/viewport"

// MaxLayers must match MAX_LAYERS in the terrain fragment shader.
const MaxLayers = viewport.MaxLayers

const terrainVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uViewProj;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
	gl_Position = uViewProj * vec4(aPosition, 1.0);
	vNormal = aNormal;
	vTexCoord = aTexCoord;
}
`

// Layers are mixed bottom first. uWeight is visible*opacity and is zero for
// hidden or empty layers. Textures are stored top row first and sampled
// mirrored in s.
const terrainFragmentShader = `
#version 410 core

const int MAX_LAYERS = 4;

in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uLayers[MAX_LAYERS];
uniform float uWeight[MAX_LAYERS];
uniform int uBlend[MAX_LAYERS];
uniform int uLayerCount;

uniform int uShading;
uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
	vec2 st = vec2(1.0 - vTexCoord.x, vTexCoord.y);
	vec3 color = vec3(0.0);

	for (int i = 0; i < MAX_LAYERS; i++) {
		if (i >= uLayerCount) {
			break;
		}
		if (uWeight[i] <= 0.0) {
			continue;
		}
		vec4 texel = texture(uLayers[i], st);
		float f = uWeight[i];
		if (uBlend[i] == 1) {
			f *= texel.a;
		}
		color = mix(color, texel.rgb, f);
	}

	if (uShading == 1) {
		float diffuse = max(dot(normalize(vNormal), normalize(uLightDir)), 0.0);
		color *= 0.4 + 0.6 * diffuse;
	}

	FragColor = vec4(color, 1.0);
}
`

const overlayVertexShader = `
#version 410 core

layout (location = 0) in vec2 aCorner;

uniform vec4 uRect;     // x, y, width, height in pixels from the top-left
uniform vec2 uViewport;

out vec2 vTexCoord;

void main() {
	vec2 p = uRect.xy + aCorner * uRect.zw;
	gl_Position = vec4(p.x / uViewport.x * 2.0 - 1.0, 1.0 - p.y / uViewport.y * 2.0, 0.0, 1.0);
	vTexCoord = aCorner;
}
`

const overlayFragmentShader = `
#version 410 core

in vec2 vTexCoord;

uniform sampler2D uImage;

out vec4 FragColor;

void main() {
	FragColor = texture(uImage, vTexCoord);
}
`

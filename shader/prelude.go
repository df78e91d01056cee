package shader

import (
	"regexp"
	"strings"
)

// ────────────────────────────── SDK prelude ──────────────────────────────
//
// The rendering SDK compiles a user snippet together with its own ray
// caster helpers. The prelude below declares the same helpers with stand-in
// bodies so that a snippet can be compiled (and its uniforms listed) without
// the SDK. The bodies do not render anything.

const preludeHeader = `#version 300 es
precision highp float;
precision highp int;
precision highp sampler3D;

uniform float lowCut;
uniform float highCut;
uniform float ambientLight;
uniform float diffuseLight;
uniform float specularLight;
uniform vec3  lightVector;

uniform sampler3D sp_volume;
uniform sampler2D sp_colormap;
uniform vec3  sp_eye;
uniform vec3  sp_volumeSize;
uniform int   sp_steps;

in vec3 sp_rayStart;
out vec4 sp_FragColor;
`

const preludeHelpers = `
struct Ray {
    vec3 start;
    vec3 end;
    vec3 delta;
    vec3 direction;
    int steps;
    bool outside;
};

Ray computeRay() {
    Ray ray;
    ray.start = sp_rayStart;
    ray.direction = normalize(sp_rayStart - sp_eye);
    ray.end = sp_rayStart + ray.direction;
    ray.steps = sp_steps;
    ray.delta = (ray.end - ray.start) / float(max(sp_steps, 1));
    ray.outside = any(lessThan(sp_rayStart, vec3(0.0))) || any(greaterThan(sp_rayStart, vec3(1.0)));
    return ray;
}

float readVolume(vec3 cursor) {
    return texture(sp_volume, cursor).r;
}

vec3 readNormal(vec3 cursor) {
    vec3 e = 1.0 / sp_volumeSize;
    return normalize(vec3(
        readVolume(cursor + vec3(e.x, 0.0, 0.0)) - readVolume(cursor - vec3(e.x, 0.0, 0.0)),
        readVolume(cursor + vec3(0.0, e.y, 0.0)) - readVolume(cursor - vec3(0.0, e.y, 0.0)),
        readVolume(cursor + vec3(0.0, 0.0, e.z)) - readVolume(cursor - vec3(0.0, 0.0, e.z))));
}

vec4 readColormap(float density) {
    return texture(sp_colormap, vec2(density, 0.5));
}

vec4 readColor(vec3 cursor) {
    return readColormap(readVolume(cursor));
}

float depthAt(vec3 cursor) {
    return clamp(distance(cursor, sp_eye), 0.0, 1.0);
}
`

// PreludeUniforms lists the uniforms the SDK sets for every snippet.
var PreludeUniforms = []string{
	"lowCut", "highCut", "ambientLight", "diffuseLight", "specularLight", "lightVector",
}

var fragColorRe = regexp.MustCompile(`\bgl_FragColor\b`)

// GeneratePreamble returns the declarations placed before a user snippet.
func GeneratePreamble() string {
	return preludeHeader + preludeHelpers
}

// GetFragmentShader wraps a user snippet in the prelude. Snippets are
// written against GLSL ES 1.00 conventions (gl_FragColor); the output
// variable is renamed so the result is valid GLSL ES 3.00.
func GetFragmentShader(user string) string {
	var b strings.Builder
	b.WriteString(GeneratePreamble())
	b.WriteString("\n#line 1\n")
	b.WriteString(fragColorRe.ReplaceAllString(user, "sp_FragColor"))
	return b.String()
}

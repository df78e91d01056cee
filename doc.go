// Package goshaderplayground is a playground for volumetric fragment shaders.
//
// A playground session holds the selected shader preset (or hand-edited
// source), a colormap, lighting coefficients and a density cut window. The
// whole configuration round-trips through a URL fragment so that it can be
// shared as a link:
//
//	#lighting                  a built-in preset, with default parameters
//	#eyJzaGFkZXIiOiJ2b2lk...   a base64 JSON payload for a custom shader
//
// Rendering is done by an external SDK reached through the renderer
// package. Sub-packages:
//
//   - state: the fragment codec
//   - shader: built-in presets and the GLSL prelude
//   - translator: shader validation
//   - colormap: density-to-color mappings and legends
//   - session, playground: per-user state and orchestration
//   - debounce: settling of rapidly edited values
//   - renderer: the rendering SDK boundary and an in-process stand-in
//   - api: volume sources (http, s3, file)
//   - server: the HTTP front end
//   - options: command-line configuration
package goshaderplayground

// package shader holds WGSL shader sources as named assets. The default
// particle shader ships embedded so the renderer works without any asset
// files on disk; custom shaders load from a path or from an in-memory string.
package shader

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed particle.wgsl
var particleWGSL string

// DefaultParticleShaderName is the name of the embedded instanced-circle
// shader used by the renderer when no custom shader is configured.
const DefaultParticleShaderName = "particle"

// shader is the implementation of the Shader interface.
type shader struct {
	name   string
	source string
}

// Shader is a named WGSL source used to build a render pipeline.
type Shader interface {
	// Name retrieves the unique identifier for this shader, used for GPU
	// object labels and lookups.
	//
	// Returns:
	//   - string: the shader's unique name
	Name() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string
}

var _ Shader = &shader{}

// NewShader loads a WGSL shader source from the given file path.
//
// Parameters:
//   - name: the unique identifier for the shader
//   - path: the filesystem path of the WGSL source file
//
// Returns:
//   - Shader: the loaded shader
//   - error: error if the file cannot be read
func NewShader(name, path string) (Shader, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %q from %s: %w", name, path, err)
	}
	return &shader{name: name, source: string(source)}, nil
}

// NewShaderFromSource wraps an in-memory WGSL source string as a Shader.
//
// Parameters:
//   - name: the unique identifier for the shader
//   - source: the WGSL source code
//
// Returns:
//   - Shader: the wrapped shader
func NewShaderFromSource(name, source string) Shader {
	return &shader{name: name, source: source}
}

// DefaultParticleShader returns the embedded instanced-circle shader.
//
// Returns:
//   - Shader: the default particle shader
func DefaultParticleShader() Shader {
	return &shader{name: DefaultParticleShaderName, source: particleWGSL}
}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Source() string {
	return s.source
}

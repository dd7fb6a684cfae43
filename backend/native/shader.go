package native

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ShaderLoader turns a shader path into a HAL shader source.
type ShaderLoader interface {
	Load(path string) (hal.ShaderSource, error)
}

// FileShaderLoader reads shaders from a file system. Files ending in .spv
// are SPIR-V binaries; files ending in .wgsl are compiled to SPIR-V with
// naga. Compiled code is cached by path and content.
type FileShaderLoader struct {
	fsys  fs.FS
	cache *ShaderCache
}

// NewShaderLoader returns a loader reading from fsys, or from the operating
// system when fsys is nil.
func NewShaderLoader(fsys fs.FS) *FileShaderLoader {
	return &FileShaderLoader{fsys: fsys, cache: NewShaderCache()}
}

// Cache returns the compiled shader cache.
func (l *FileShaderLoader) Cache() *ShaderCache { return l.cache }

// Load implements ShaderLoader. Errors wrap rhi.ErrShaderLoad.
func (l *FileShaderLoader) Load(name string) (hal.ShaderSource, error) {
	data, err := l.read(name)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("%w: %w", rhi.ErrShaderLoad, err)
	}
	words, err := l.cache.GetOrCompile(name, data, compilerFor(name))
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("%w: %s: %w", rhi.ErrShaderLoad, name, err)
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

func (l *FileShaderLoader) read(name string) ([]byte, error) {
	if l.fsys != nil {
		return fs.ReadFile(l.fsys, name)
	}
	return os.ReadFile(name)
}

// compilerFor selects the compiler by file extension. Unknown extensions
// are accepted when the content starts with the SPIR-V magic number.
func compilerFor(name string) func([]byte) ([]uint32, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".spv":
		return DecodeSPIRV
	case ".wgsl":
		return func(src []byte) ([]uint32, error) { return CompileWGSL(string(src)) }
	default:
		return func(src []byte) ([]uint32, error) {
			if len(src) >= 4 && binary.LittleEndian.Uint32(src) == spirvMagic {
				return DecodeSPIRV(src)
			}
			return nil, fmt.Errorf("%w: unknown shader extension %q", ErrInvalidShader, path.Ext(name))
		}
	}
}

// DecodeSPIRV converts a little-endian SPIR-V binary to words and checks
// the magic number.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V size %d is not a positive multiple of 4", ErrInvalidShader, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad SPIR-V magic %#08x", ErrInvalidShader, words[0])
	}
	return words, nil
}

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: compile WGSL: %w", ErrInvalidShader, err)
	}
	return DecodeSPIRV(spirv)
}

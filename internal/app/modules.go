package app

import (
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/modules/audioextract"
	"github.com/gridnote/studio/modules/clicommand"
	"github.com/gridnote/studio/modules/dataset"
	"github.com/gridnote/studio/modules/httprequest"
	"github.com/gridnote/studio/modules/imagegen"
	"github.com/gridnote/studio/modules/input"
	"github.com/gridnote/studio/modules/notewrite"
	"github.com/gridnote/studio/modules/template"
	"github.com/gridnote/studio/modules/textgen"
	"github.com/gridnote/studio/modules/transcribe"
)

// BuiltinModules returns the closed set of node modules the engine ships.
// Projects cannot load kinds outside this list.
func BuiltinModules() []registry.Module {
	return []registry.Module{
		&input.Module{},
		&template.Module{},
		&textgen.Module{},
		&imagegen.Module{},
		&audioextract.Module{},
		&transcribe.Module{},
		&httprequest.Module{},
		&clicommand.Module{},
		&dataset.Module{},
		&notewrite.Module{},
	}
}

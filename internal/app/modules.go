package app

import (
	"github.com/specialistvlad/pipewright/internal/registry"
	"github.com/specialistvlad/pipewright/modules/artifact"
	"github.com/specialistvlad/pipewright/modules/cache"
	"github.com/specialistvlad/pipewright/modules/checkout"
	"github.com/specialistvlad/pipewright/modules/image"
	"github.com/specialistvlad/pipewright/modules/registryauth"
	"github.com/specialistvlad/pipewright/modules/run"
	"github.com/specialistvlad/pipewright/modules/toolchain"
)

// coreModules is the definitive list of all step modules that are compiled
// into the pipewright binary.
var coreModules = []registry.Module{
	&artifact.Module{},
	&cache.Module{},
	&checkout.Module{},
	&image.Module{},
	&registryauth.Module{},
	&run.Module{},
	&toolchain.Module{},
}

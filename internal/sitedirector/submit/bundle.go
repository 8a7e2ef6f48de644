package submit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// ScriptBundleBuilder writes a self-contained pilot wrapper script to a local
// working directory. The wrapper is what the compute endpoint ships to the
// worker node; the real pilot payload is fetched by the wrapper at runtime.
type ScriptBundleBuilder struct {
	workDir string
}

func NewScriptBundleBuilder(workDir string) *ScriptBundleBuilder {
	return &ScriptBundleBuilder{workDir: workDir}
}

func (b *ScriptBundleBuilder) BuildExecutable(
	queue *domain.Queue,
	count int,
	bundleProxy bool,
	httpProxy string,
	execDir string,
) (*domain.Bundle, error) {
	workDir := b.workDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	path := filepath.Join(workDir, fmt.Sprintf("pilot-wrapper-%s.sh", uuid.NewString()))
	script := pilotWrapperScript(queue, bundleProxy, httpProxy, execDir)
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to write pilot wrapper for queue %s", queue.Key)
	}

	return &domain.Bundle{Path: path, Chunk: count}, nil
}

func pilotWrapperScript(queue *domain.Queue, bundleProxy bool, httpProxy, execDir string) string {
	script := "#!/bin/bash\n"
	if httpProxy != "" {
		script += fmt.Sprintf("export HTTP_PROXY=%q\n", httpProxy)
	}
	if execDir != "" {
		script += fmt.Sprintf("cd %q || exit 1\n", execDir)
	}
	script += fmt.Sprintf("export PILOT_DESTINATION_SITE=%q\n", queue.Key.Site)
	script += fmt.Sprintf("export PILOT_DESTINATION_QUEUE=%q\n", queue.Key.Name)
	if bundleProxy {
		// The credential travels inside the bundle instead of being
		// delegated by the endpoint.
		script += "export PILOT_PROXY_FROM_BUNDLE=true\n"
	}
	script += "exec ./pilot --fetch-payload\n"
	return script
}

package patch

import (
	"fmt"

	"github.com/blackspinne/lovable-cpannel/internal/project"
)

func patchCRA(slug string, m *project.Manifest, report *Report) error {
	changed, err := m.SetString("homepage", "/"+slug)
	if err != nil {
		return fmt.Errorf("set homepage: %w", err)
	}
	report.manifestChanged = report.manifestChanged || changed
	return nil
}

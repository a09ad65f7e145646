package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"spvir/internal/spv/spec"
	"spvir/internal/testkit"
)

const maxSeedBytes = 64 << 10 // 64 KiB

func addCorpusSeeds(f *testing.F) {
	sample := testkit.SampleModule()
	f.Add(sample)
	// обрезанные варианты по границам слов
	for n := spec.HeaderWords * 4; n < len(sample); n += 24 {
		f.Add(sample[:n])
	}
	f.Add(testkit.Assemble(testkit.SampleVersion, 0, 1))
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every *.spv file under the repository testdata, if
// there is one.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".spv" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		data, err := os.ReadFile(path)
		if err != nil || len(data) > maxSeedBytes {
			return nil
		}
		f.Add(data)
		return nil
	})
}

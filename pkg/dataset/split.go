package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Split shuffles examples with a seeded source and returns train and test partitions.
// The test partition holds ceil(len * testSize) examples. The input slice is not modified.
func Split(examples []models.TestExample, testSize float64, seed int64) (train, test []models.TestExample, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be between 0 and 1, got %v", testSize)
	}
	if len(examples) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 examples to split, got %d", len(examples))
	}

	shuffled := slices.Clone(examples)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32|1)) // #nosec G404 -- reproducible split, not security sensitive
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// The epsilon keeps 10 * 0.3 at 3 rather than 3.0000000000000004 rounding up.
	nTest := int(math.Ceil(float64(len(shuffled))*testSize - 1e-9))
	if nTest >= len(shuffled) {
		nTest = len(shuffled) - 1
	}
	return shuffled[nTest:], shuffled[:nTest], nil
}

// Files names the split outputs inside a data directory.
type Files struct {
	Train string
	Test  string
}

// NewFiles joins the train and test file names to dir.
func NewFiles(dir, trainFile, testFile string) Files {
	return Files{Train: filepath.Join(dir, trainFile), Test: filepath.Join(dir, testFile)}
}

// SplitFile loads source, splits it and writes both partitions.
func SplitFile(source string, files Files, testSize float64, seed int64) (train, test []models.TestExample, err error) {
	examples, err := LoadExamples(source)
	if err != nil {
		return nil, nil, err
	}
	train, test, err = Split(examples, testSize, seed)
	if err != nil {
		return nil, nil, err
	}
	if err := WriteExamples(files.Train, train); err != nil {
		return nil, nil, err
	}
	if err := WriteExamples(files.Test, test); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// Load reads previously written train and test partitions.
func Load(files Files) (train, test []models.TestExample, err error) {
	if train, err = LoadExamples(files.Train); err != nil {
		return nil, nil, err
	}
	if test, err = LoadExamples(files.Test); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

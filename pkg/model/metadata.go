package model

// NameMap implements a bidirectional mapping between a name and an index
type NameMap struct {
	NameToIndex map[string]int
	IndexToName map[int]string
}

func NewNameMap() NameMap {
	return NameMap{
		NameToIndex: map[string]int{},
		IndexToName: map[int]string{},
	}
}

func (f NameMap) Set(name string, index int) {
	f.NameToIndex[name] = index
	f.IndexToName[index] = name
}

func (f NameMap) Size() int {
	return len(f.IndexToName)
}

func (f NameMap) ContainsName(name string) (int, bool) {
	index, ok := f.NameToIndex[name]
	return index, ok
}

// ValueFor returns the index of name, assigning the next free index if the
// name has not been seen before.
func (f NameMap) ValueFor(name string) int {
	index, ok := f.NameToIndex[name]
	if !ok {
		index = f.Size()
		f.Set(name, index)
	}
	return index
}

// ColumnMap is a bidirectional mapping between a data column index and a
// feature index
type ColumnMap struct {
	ColumnToIndex map[int]int
	IndexToColumn map[int]int
}

func NewColumnMap() ColumnMap {
	return ColumnMap{
		ColumnToIndex: map[int]int{},
		IndexToColumn: map[int]int{},
	}
}

func (f ColumnMap) Set(column int, index int) {
	f.ColumnToIndex[column] = index
	f.IndexToColumn[index] = column
}

func (f ColumnMap) Size() int {
	return len(f.ColumnToIndex)
}

func (f ColumnMap) GetColumn(column int) (int, bool) {
	index, ok := f.ColumnToIndex[column]
	return index, ok
}

type Metadata struct {
	Columns []string

	// ContinuousFeaturesMap maps a data column index to a position in the
	// continuous section of the feature vector
	ContinuousFeaturesMap ColumnMap

	// CategoricalFeaturesMap maps a data column index to a categorical slot.
	// Each slot is one-hot encoded after the continuous section.
	CategoricalFeaturesMap ColumnMap

	// CategoricalValuesMap maps a categorical slot to the values observed for
	// it during training. The value index is the offset within the slot's
	// one-hot block.
	CategoricalValuesMap map[int]NameMap

	// TargetColumn points to the column in the data row that contains the
	// prediction target
	TargetColumn int

	// TargetMap contains a mapping of target category names to class indexes
	TargetMap NameMap

	// FeatureMeans and FeatureStdDevs hold the training-set statistics used
	// to standardize each continuous feature
	FeatureMeans   []float64
	FeatureStdDevs []float64
}

func NewMetadata() *Metadata {
	return &Metadata{
		Columns:                nil,
		ContinuousFeaturesMap:  NewColumnMap(),
		CategoricalFeaturesMap: NewColumnMap(),
		CategoricalValuesMap:   map[int]NameMap{},
		TargetMap:              NewNameMap(),
	}
}

func (d *Metadata) FeatureCount() int {
	return d.CategoricalFeaturesMap.Size() + d.ContinuousFeaturesMap.Size()
}

// FeatureVectorSize is the length of the encoded feature vector: one entry
// per continuous feature plus a one-hot block per categorical feature.
func (d *Metadata) FeatureVectorSize() int {
	size := d.ContinuousFeaturesMap.Size()
	for _, values := range d.CategoricalValuesMap {
		size += values.Size()
	}
	return size
}

// CategoricalOffset returns the position of the first entry of the given
// categorical slot's one-hot block within the feature vector.
func (d *Metadata) CategoricalOffset(slot int) int {
	offset := d.ContinuousFeaturesMap.Size()
	for s := 0; s < slot; s++ {
		offset += d.CategoricalValuesMap[s].Size()
	}
	return offset
}

func (d *Metadata) ParseOrAddCategoricalTarget(value string) float64 {
	return float64(d.TargetMap.ValueFor(value))
}

func (d *Metadata) ParseCategoricalTarget(value string) (float64, bool) {
	target, ok := d.TargetMap.ContainsName(value)
	return float64(target), ok
}

// ClassNames returns the target class names ordered by class index.
func (d *Metadata) ClassNames() []string {
	result := make([]string, d.TargetMap.Size())
	for i := range result {
		result[i] = d.TargetMap.IndexToName[i]
	}
	return result
}

package io

import (
	"math"
	"math/rand"
)

// DataSet is a view over a slice of records with a configurable iteration
// order. Splits and oversampled variants share the underlying records and
// only carry their own index lists.
type DataSet struct {
	Data         []*DataRecord
	BatchSize    int
	Rand         *rand.Rand
	dataIndices  []int
	currentOrder []int
	currentIndex int
}

type DatasetOrder int

const (
	OriginalOrder DatasetOrder = iota
	RandomOrder
)

func NewDataSet(data []*DataRecord, batchSize int, rnd *rand.Rand) *DataSet {
	dataIndices := make([]int, len(data))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	ds := &DataSet{Data: data, BatchSize: batchSize, Rand: rnd, dataIndices: dataIndices}
	ds.ResetOrder(OriginalOrder)
	return ds
}

func NewDataSetSplit(data []*DataRecord, batchSize int, rnd *rand.Rand, indices []int) *DataSet {
	ds := &DataSet{Data: data, BatchSize: batchSize, Rand: rnd, dataIndices: indices}
	ds.ResetOrder(OriginalOrder)
	return ds
}

func (d *DataSet) ResetOrder(order DatasetOrder) {
	if len(d.currentOrder) != len(d.dataIndices) {
		d.currentOrder = make([]int, len(d.dataIndices))
	}
	switch order {
	case OriginalOrder:
		copy(d.currentOrder, d.dataIndices)
	case RandomOrder:
		ind := d.Rand.Perm(len(d.currentOrder))
		for i := range ind {
			d.currentOrder[i] = d.dataIndices[ind[i]]
		}
	}
	d.currentIndex = 0
}

// Next returns the next batch in the current order, or an empty batch once
// the dataset is exhausted.
func (d *DataSet) Next() DataBatch {
	batch := make(DataBatch, 0, d.BatchSize)
	for ; d.currentIndex < len(d.currentOrder) && len(batch) < d.BatchSize; d.currentIndex++ {
		batch = append(batch, d.Data[d.currentOrder[d.currentIndex]])
	}
	return batch
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

func (d *DataSet) RandomSplit(sizes ...int) []*DataSet {
	indices := make([]int, len(d.dataIndices))
	copy(indices, d.dataIndices)
	d.Rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	splits := make([]*DataSet, len(sizes))
	idx := 0
	for i := range sizes {
		splitIndices := make([]int, sizes[i])
		for j := range splitIndices {
			splitIndices[j] = indices[idx]
			idx++
		}
		splits[i] = NewDataSetSplit(d.Data, d.BatchSize, d.Rand, splitIndices)
	}
	return splits
}

// TrainTestSplit randomly partitions the dataset, reserving testFraction of
// the records (rounded, at least one) for the second returned set.
func (d *DataSet) TrainTestSplit(testFraction float64) (*DataSet, *DataSet) {
	testSize := int(math.Round(float64(d.Size()) * testFraction))
	if testSize < 1 {
		testSize = 1
	}
	splits := d.RandomSplit(d.Size()-testSize, testSize)
	return splits[0], splits[1]
}

// Oversample balances the class distribution by repeating records of the
// smaller classes until every class matches the size of the largest one. The
// repeats cycle through each class's records in order, so the result is
// reproducible.
func (d *DataSet) Oversample() *DataSet {
	byClass := map[float64][]int{}
	for _, index := range d.dataIndices {
		target := d.Data[index].Target
		byClass[target] = append(byClass[target], index)
	}

	maxSize := 0
	for _, indices := range byClass {
		if len(indices) > maxSize {
			maxSize = len(indices)
		}
	}

	var balanced []int
	balanced = append(balanced, d.dataIndices...)
	for _, indices := range byClass {
		for i := len(indices); i < maxSize; i++ {
			balanced = append(balanced, indices[i%len(indices)])
		}
	}

	return NewDataSetSplit(d.Data, d.BatchSize, d.Rand, balanced)
}

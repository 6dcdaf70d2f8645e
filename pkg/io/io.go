package io

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nlpodyssey/spago/pkg/mat"
	"gonum.org/v1/gonum/stat"

	"rookery/pkg/model"
)

// DataRecord holds one encoded example: the standardized feature vector and
// the target class index.
type DataRecord struct {
	Features mat.Matrix
	Target   float64
}

type DataBatch []*DataRecord

type void struct{}

var Void = void{}

type Set map[string]void

func NewSet(values ...string) Set {
	set := Set{}
	for _, val := range values {
		set[val] = Void
	}
	return set
}

type DataParameters struct {
	DataFile           string
	TargetColumn       string
	CategoricalColumns Set
}

type DataError struct {
	Line  int
	Error string
}

// LoadData reads a CSV file with a header row and encodes each data row into
// a DataRecord. When metaData is nil a new Metadata is fitted from the file:
// target classes and categorical values are collected, and the mean and
// standard deviation of each continuous column are computed for
// standardization. When metaData is given (test or inference data) it is
// reused as-is and rows with unknown values are reported as errors.
//
// Rows with missing or unparseable values are skipped and reported in the
// returned DataError slice, one entry per bad row.
func LoadData(p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	inputFile, err := os.Open(p.DataFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()

	reader := csv.NewReader(inputFile)
	reader.Comma = ','

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data rows: %w", err)
	}

	if metaData == nil {
		metaData = model.NewMetadata()
		metaData.Columns = header
		if err := setTargetColumn(p, metaData); err != nil {
			return nil, nil, nil, err
		}
		buildFeatureIndex(p, metaData)
		fitMetadata(metaData, rows)
	}

	var records []*DataRecord
	var errors []DataError
	for i, row := range rows {
		record, err := encodeRecord(metaData, row)
		if err != nil {
			errors = append(errors, DataError{
				Line:  i + 1,
				Error: err.Error(),
			})
			continue
		}
		records = append(records, record)
	}

	return metaData, records, errors, nil
}

func setTargetColumn(p DataParameters, metaData *model.Metadata) error {
	for i, col := range metaData.Columns {
		if col == p.TargetColumn {
			metaData.TargetColumn = i
			return nil
		}
	}
	return fmt.Errorf("target column %s not found in data header", p.TargetColumn)
}

func buildFeatureIndex(p DataParameters, metaData *model.Metadata) {
	continuousIndex := 0
	categoricalSlot := 0
	for i, col := range metaData.Columns {
		if i == metaData.TargetColumn {
			continue
		}
		if _, isCategorical := p.CategoricalColumns[col]; isCategorical {
			metaData.CategoricalFeaturesMap.Set(i, categoricalSlot)
			metaData.CategoricalValuesMap[categoricalSlot] = model.NewNameMap()
			categoricalSlot++
		} else {
			metaData.ContinuousFeaturesMap.Set(i, continuousIndex)
			continuousIndex++
		}
	}
}

// fitMetadata collects target classes, categorical values and continuous
// column statistics from the rows that parse cleanly. Rows it skips here will
// surface as DataErrors during encoding.
func fitMetadata(metaData *model.Metadata, rows [][]string) {
	continuousValues := make([][]float64, metaData.ContinuousFeaturesMap.Size())

	for _, row := range rows {
		values, ok := parseContinuousValues(metaData, row)
		if !ok {
			continue
		}
		metaData.ParseOrAddCategoricalTarget(row[metaData.TargetColumn])
		for column, slot := range metaData.CategoricalFeaturesMap.ColumnToIndex {
			metaData.CategoricalValuesMap[slot].ValueFor(row[column])
		}
		for index, value := range values {
			continuousValues[index] = append(continuousValues[index], value)
		}
	}

	metaData.FeatureMeans = make([]float64, len(continuousValues))
	metaData.FeatureStdDevs = make([]float64, len(continuousValues))
	for index, values := range continuousValues {
		mean, stdDev := stat.MeanStdDev(values, nil)
		if stdDev == 0 || len(values) < 2 {
			stdDev = 1
		}
		metaData.FeatureMeans[index] = mean
		metaData.FeatureStdDevs[index] = stdDev
	}
}

// parseContinuousValues parses the continuous entries of a row, indexed by
// their position in the feature vector. It also rejects rows with missing
// values or the wrong number of fields.
func parseContinuousValues(metaData *model.Metadata, row []string) ([]float64, bool) {
	if len(row) != len(metaData.Columns) {
		return nil, false
	}
	for _, field := range row {
		if missingValue(field) {
			return nil, false
		}
	}
	values := make([]float64, metaData.ContinuousFeaturesMap.Size())
	for column, index := range metaData.ContinuousFeaturesMap.ColumnToIndex {
		value, err := strconv.ParseFloat(row[column], 64)
		if err != nil {
			return nil, false
		}
		values[index] = value
	}
	return values, true
}

func missingValue(field string) bool {
	return field == "" || field == "NA"
}

func encodeRecord(metaData *model.Metadata, row []string) (*DataRecord, error) {
	if len(row) != len(metaData.Columns) {
		return nil, fmt.Errorf("expected %d fields, found %d", len(metaData.Columns), len(row))
	}

	targetName := row[metaData.TargetColumn]
	if missingValue(targetName) {
		return nil, fmt.Errorf("missing value for target column %s", metaData.Columns[metaData.TargetColumn])
	}
	target, ok := metaData.ParseCategoricalTarget(targetName)
	if !ok {
		return nil, fmt.Errorf("unknown target value %s", targetName)
	}

	features := mat.NewEmptyVecDense(metaData.FeatureVectorSize())
	for column, index := range metaData.ContinuousFeaturesMap.ColumnToIndex {
		if err := encodeContinuous(metaData, column, index, row[column], features); err != nil {
			return nil, err
		}
	}
	for column, slot := range metaData.CategoricalFeaturesMap.ColumnToIndex {
		if err := encodeCategorical(metaData, column, slot, row[column], features); err != nil {
			return nil, err
		}
	}

	return &DataRecord{Features: features, Target: target}, nil
}

func encodeContinuous(metaData *model.Metadata, column, index int, field string, features *mat.Dense) error {
	if missingValue(field) {
		return fmt.Errorf("missing value for feature %s", metaData.Columns[column])
	}
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return fmt.Errorf("error parsing feature %s: %w", metaData.Columns[column], err)
	}
	standardized := (value - metaData.FeatureMeans[index]) / metaData.FeatureStdDevs[index]
	features.Set(index, 0, standardized)
	return nil
}

func encodeCategorical(metaData *model.Metadata, column, slot int, field string, features *mat.Dense) error {
	if missingValue(field) {
		return fmt.Errorf("missing value for feature %s", metaData.Columns[column])
	}
	valueIndex, ok := metaData.CategoricalValuesMap[slot].ContainsName(field)
	if !ok {
		return fmt.Errorf("unknown value %s for categorical attribute %s", field, metaData.Columns[column])
	}
	features.Set(metaData.CategoricalOffset(slot)+valueIndex, 0, 1.0)
	return nil
}

// EncodeSample encodes a single unlabeled sample given as one value per
// feature column, in header order with the target column omitted.
func EncodeSample(metaData *model.Metadata, values []string) (mat.Matrix, error) {
	if len(values) != len(metaData.Columns)-1 {
		return nil, fmt.Errorf("expected %d feature values, found %d", len(metaData.Columns)-1, len(values))
	}

	features := mat.NewEmptyVecDense(metaData.FeatureVectorSize())
	valueIndex := 0
	for column := range metaData.Columns {
		if column == metaData.TargetColumn {
			continue
		}
		field := strings.TrimSpace(values[valueIndex])
		valueIndex++
		if index, ok := metaData.ContinuousFeaturesMap.GetColumn(column); ok {
			if err := encodeContinuous(metaData, column, index, field, features); err != nil {
				return nil, err
			}
			continue
		}
		if slot, ok := metaData.CategoricalFeaturesMap.GetColumn(column); ok {
			if err := encodeCategorical(metaData, column, slot, field, features); err != nil {
				return nil, err
			}
		}
	}
	return features, nil
}

func SaveModel(model *model.Model, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	err := encoder.Encode(model)
	if err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func LoadModel(input io.Reader) (*model.Model, error) {
	decoder := gob.NewDecoder(input)
	model := model.Model{}
	err := decoder.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	return &model, nil
}

package model

// Model pairs a trained network with the metadata needed to encode its input
// and decode its output.
type Model struct {
	MetaData *Metadata
	Net      *MLP
}

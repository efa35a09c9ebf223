package database

import (
	"github.com/jackadi-io/configmanager/internal/serializer"
)

// MarshalRun serializes a run for database storage.
func MarshalRun(run *Run) ([]byte, error) {
	return serializer.JSON.Marshal(run)
}

// UnmarshalRun deserializes run data from the database.
func UnmarshalRun(data []byte) (*Run, error) {
	var run Run
	err := serializer.JSON.Unmarshal(data, &run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// MarshalCorrelation serializes a correlation entry for database storage.
func MarshalCorrelation(entry *Correlation) ([]byte, error) {
	return serializer.JSON.Marshal(entry)
}

// UnmarshalCorrelation deserializes correlation data from the database.
func UnmarshalCorrelation(data []byte) (*Correlation, error) {
	var entry Correlation
	err := serializer.JSON.Unmarshal(data, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalStateChange serializes an archived state change for database storage.
func MarshalStateChange(change *StateChange) ([]byte, error) {
	return serializer.JSON.Marshal(change)
}

// UnmarshalStateChange deserializes state change data from the database.
func UnmarshalStateChange(data []byte) (*StateChange, error) {
	var change StateChange
	err := serializer.JSON.Unmarshal(data, &change)
	if err != nil {
		return nil, err
	}
	return &change, nil
}

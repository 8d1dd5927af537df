package db

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodePessoas renders the full record list the way it is kept in the slot.
func EncodePessoas(pessoas []Pessoa) ([]byte, error) {
	if pessoas == nil {
		pessoas = []Pessoa{}
	}
	return json.Marshal(pessoas)
}

// EncodePessoasIndent renders the record list for export files.
func EncodePessoasIndent(pessoas []Pessoa) ([]byte, error) {
	if pessoas == nil {
		pessoas = []Pessoa{}
	}
	return json.MarshalIndent(pessoas, "", "  ")
}

// DecodePessoas parses a JSON document that must hold an array of records at
// the top level.
func DecodePessoas(data []byte) ([]Pessoa, error) {
	iter := jsoniter.ParseBytes(json, data)
	if iter.WhatIsNext() != jsoniter.ArrayValue {
		if iter.Error != nil {
			return nil, iter.Error
		}
		return nil, ErrNotArray
	}

	var pessoas []Pessoa
	if err := json.Unmarshal(data, &pessoas); err != nil {
		return nil, err
	}
	if pessoas == nil {
		pessoas = []Pessoa{}
	}
	return pessoas, nil
}

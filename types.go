package main

const (
	defaultExperimentName = "ECD Coach - (Nigeria Experiments) V6"
	defaultUnknownBot     = "V6"
	defaultSpikeMethod    = "Visit check in"
	defaultSpikeSession   = 10
)

var defaultUnknownMessageBots = []string{"V3", "V4"}

package config

type WorkerKeyStruct struct {
	// PersistFlagsQueue is the Redis list drained by the flag worker. Items
	// are anti-cheat verdicts waiting to be written back onto completed
	// attempts.
	PersistFlagsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistFlagsQueue: "persist_flags_queue",
}

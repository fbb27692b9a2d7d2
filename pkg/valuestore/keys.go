package valuestore

// Well-known keys, mirroring the closed catalog in the original
// implementation's core/src/store.rs. Each constant's doc comment records
// the out-of-band type contract: what Go type a reader must assert the
// value to, and whether the key is pushed once (core config) or updated
// every iteration (hot path).
const (
	// KeyInputDir holds a string: the configured input seed directory.
	KeyInputDir = "input_dir"
	// KeyStateDir holds a string: the configured state directory.
	KeyStateDir = "state_dir"
	// KeyResultsDir holds a string: the configured results directory.
	KeyResultsDir = "results_dir"
	// KeyCwd holds a string: the configured cwd, which defaults to the
	// directory of the project config file.
	KeyCwd = "cwd"
	// KeyTargetBin holds a string: path to the target binary.
	KeyTargetBin = "target_bin"
	// KeyTargetArgs holds one string per argument, pushed back in order.
	KeyTargetArgs = "target_args"
	// KeyFuzzerID holds a string: this instance's fuzzer id (prefix+index).
	KeyFuzzerID = "fuzzer_id"
	// KeyPluginConf holds a map[string]string: the plugin_conf config block.
	KeyPluginConf = "plugin_conf"
	// KeyAvgDenominator holds a *uint64: shared rolling-average denominator.
	KeyAvgDenominator = "avg_denominator"
	// KeyNumExecs holds a *uint64: shared execution counter.
	KeyNumExecs = "num_execs"

	// KeyInputPath holds a string: on-disk path of the currently selected input.
	KeyInputPath = "input_path"
	// KeyInput holds a *[]byte: the current, mutable input buffer.
	KeyInput = "input"
	// KeyMutInput holds a *[]byte: the mutator's working copy of the input.
	KeyMutInput = "mut_input"
	// KeySaveMutInput holds a *bool: whether the mutated buffer should be
	// considered for corpus ingestion this iteration.
	KeySaveMutInput = "save_mut_input"
	// KeyTargetExecUs holds a *uint64: last target execution time in microseconds.
	KeyTargetExecUs = "target_exec_us"
	// KeyExitStatus holds a *ExitStatus (see pkg/target): last target exit classification.
	KeyExitStatus = "exit_status"

	// KeyInputList holds a *corpus.List: the corpus store's ordered descriptors.
	KeyInputList = "input_list"
	// KeyInputIdx holds a *int: index into the input list chosen this iteration.
	KeyInputIdx = "input_idx"
	// KeyNewInputs holds one corpus.NewInput per deque entry: inbound queue of not-yet-ingested inputs.
	KeyNewInputs = "new_inputs"
	// KeyNoMutate holds a *bool: when true, the mutator skips this iteration.
	KeyNoMutate = "no_mutate"
	// KeyNoSelect holds a *bool: when true, the selector does not pick a new input.
	KeyNoSelect = "no_select"
	// KeyRestoreInput holds a *bool: when true, the mutator must restore the
	// previous mutation before advancing (deterministic-stage undo).
	KeyRestoreInput = "restore_input"

	// KeyAflState holds a *mutate.GlobalState: shared AFL calibration state.
	// Per-input AFL queue metadata (cal_failed, bitmap_size, handicap, depth,
	// ...) is not a separate store entry: it lives directly on each
	// corpus.Descriptor in the input list, per spec.md's Data Model.
	KeyAflState = "afl_state"
)

package mutate

// Score computes the perf_score AFL uses to scale havoc iteration counts
// for a given queue entry, weighing its calibrated exec time and observed
// bitmap size against the run's running averages, then its handicap (how
// far behind the fuzzer was when this input was queued) and its
// mutation-tree depth. The result is not yet clamped to HAVOC_MAX_MULT;
// newHavocState performs that clamp.
func Score(execUs, bitmapSize uint64, handicap, depth uint64, global *GlobalState) int {
	score := 100

	if global != nil {
		score = score * execTimeFactor(execUs, global.AvgExecUs()) / 100
		score = score * bitmapFactor(bitmapSize, global.AvgBitmapSize()) / 100
	}

	if handicap >= 4 {
		score *= 4
	} else if handicap > 0 {
		score *= 2
	}

	score = score * depthFactor(depth)

	if score < 1 {
		score = 1
	}

	return score
}

// execTimeFactor scores this entry's calibrated exec time relative to the
// run's average: slower-than-average entries are throttled (as low as
// 10), faster-than-average entries are favored (as high as 300).
func execTimeFactor(execUs, avgUs uint64) int {
	if avgUs == 0 {
		return 100
	}

	switch {
	case execUs > avgUs*10:
		return 10
	case execUs > avgUs*4:
		return 25
	case execUs > avgUs*2:
		return 50
	case execUs*3 > avgUs*4:
		return 75
	case execUs*4 < avgUs:
		return 300
	case execUs*3 < avgUs:
		return 200
	case execUs*2 < avgUs:
		return 150
	default:
		return 100
	}
}

func bitmapFactor(size, avg uint64) int {
	if avg == 0 {
		return 100
	}

	switch {
	case size*4 <= avg:
		return 90
	case size*2 <= avg:
		return 95
	case size*4 <= avg*3:
		return 100
	case avg*3 <= size:
		return 300
	case avg*2 <= size:
		return 200
	default:
		return 100
	}
}

func depthFactor(depth uint64) int {
	switch {
	case depth <= 3:
		return 1
	case depth <= 7:
		return 2
	case depth <= 13:
		return 3
	case depth <= 25:
		return 4
	default:
		return 5
	}
}

package statsregion

import "errors"

var (
	// ErrMemoryTooSmall is returned when appending a plugin or stat block
	// would overflow the region's fixed size.
	ErrMemoryTooSmall = errors.New("statsregion: memory too small")
	// ErrNotInitializing is returned when a structural append (NewPlugin,
	// NewNumStat, NewBytesStat, NewStrStat) is attempted after the region
	// left the Initializing state.
	ErrNotInitializing = errors.New("statsregion: region is no longer initializing")
	// ErrCorrupt is returned by Open when the file is shorter than the
	// header or its magic does not match, and by Reader.Plugins when a
	// length or capacity field would read past the mapped region or a stat
	// kind is unknown.
	ErrCorrupt = errors.New("statsregion: corrupt region")
	// ErrIncompatible is returned by Open when the magic matches but the
	// version does not.
	ErrIncompatible = errors.New("statsregion: incompatible version")
	// ErrWrongKind is returned when a stat handle is used with an accessor
	// for a different StatKind than it was created with.
	ErrWrongKind = errors.New("statsregion: wrong stat kind")
	// ErrValueTooLarge is returned when a Bytes/Str write exceeds the
	// stat's reserved capacity.
	ErrValueTooLarge = errors.New("statsregion: value exceeds reserved capacity")
)

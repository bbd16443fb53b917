package stage

// Stage names double as progress identifiers.
const (
	Pending       = "pending"
	Transcribing  = "transcribing"
	Descriptions  = "descriptions"
	Entities      = "entities"
	Titles        = "titles"
	Script        = "script"
	Editing       = "editing"
	RemoveSilence = "remove_silence"
	Distribution  = "distribution"
	Complete      = "complete"
	Error         = "error"
)

// State keys written by the stages. KeyFilePath is seeded by the caller.
const (
	KeyFilePath         = "file_path"
	KeyTranscript       = "transcript"
	KeyShortDescription = "short_description"
	KeyLongDescription  = "long_description"
	KeyPeople           = "people"
	KeyLocations        = "locations"
	KeyTitles           = "titles"
	KeyScript           = "script"
	KeyEditedAudio      = "edited_audio"
	KeyOriginalDuration = "original_duration"
	KeyTrimmedDuration  = "trimmed_duration"
	KeyDistribution     = "distribution"
)

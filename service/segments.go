package service

import (
	"math"
	"strings"
	"unicode"

	"echocore/entities"
	"echocore/pkg/asr"
)

// Sentence terminators flush the running segment.
const sentencePunctuation = "。！？!?；;\n"

// Punctuation is inserted by the punc model after timestamp alignment,
// so no punctuation character consumes a timestamp pair.
const nonTerminalPunctuation = "，,、：:“”‘’\"'()（）【】[]《》<>—…·"

var (
	terminatorSet  = runeSet(sentencePunctuation)
	punctuationSet = runeSet(sentencePunctuation + nonTerminalPunctuation)
)

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// BuildSegments reduces one raw recognizer result to ordered sentence
// segments. Structured sentence records win; otherwise sentences are
// reconstructed from the flat transcript and per-character millisecond
// timestamps; as a last resort a non-empty transcript becomes a single
// zero-timed segment.
func BuildSegments(res asr.RawResult) []entities.Segment {
	if segments := segmentsFromSentenceInfo(res.SentenceInfo); len(segments) > 0 {
		return segments
	}

	text := strings.TrimSpace(res.Text)
	if segments := segmentsFromTimestamps(text, res.Timestamp); len(segments) > 0 {
		return segments
	}

	if text != "" {
		return []entities.Segment{{Text: text, StartTime: 0, EndTime: 0}}
	}
	return nil
}

func segmentsFromSentenceInfo(sentences []asr.Sentence) []entities.Segment {
	var segments []entities.Segment
	for _, sent := range sentences {
		text := strings.TrimSpace(sent.Text)
		if text == "" {
			text = strings.TrimSpace(sent.Sentence)
		}
		if text == "" {
			continue
		}

		var start, end float64
		if pairs := normalizeTimestampPairs(sent.Timestamp); len(pairs) > 0 {
			start = round3(pairs[0][0] / 1000)
			end = round3(pairs[len(pairs)-1][1] / 1000)
		} else {
			if raw := firstNonZero(sent.BeginTime, sent.Start, sent.StartTime); raw != 0 {
				start = round3(raw / 1000)
			}
			if raw := firstNonZero(sent.EndTime, sent.End, sent.Stop); raw != 0 {
				end = round3(raw / 1000)
			}
		}

		segments = append(segments, entities.Segment{Text: text, StartTime: start, EndTime: end})
	}
	return segments
}

// segmentsFromTimestamps splits the transcript at sentence terminators.
// Only spoken characters consume a timestamp pair; a segment spans from
// its first consumed start to its last consumed end.
func segmentsFromTimestamps(text string, rawTimestamps [][]float64) []entities.Segment {
	pairs := normalizeTimestampPairs(rawTimestamps)
	if text == "" || len(pairs) == 0 {
		return nil
	}

	var (
		segments []entities.Segment
		current  strings.Builder
		startMS  = -1.0
		endMS    = -1.0
		tsIdx    int
	)

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			seg := entities.Segment{Text: sentence}
			if startMS >= 0 {
				seg.StartTime = round3(startMS / 1000)
			}
			if endMS >= 0 {
				seg.EndTime = round3(endMS / 1000)
			}
			segments = append(segments, seg)
		}
		current.Reset()
		startMS = -1
		endMS = -1
	}

	for _, ch := range text {
		current.WriteRune(ch)

		_, isPunct := punctuationSet[ch]
		if !unicode.IsSpace(ch) && !isPunct && tsIdx < len(pairs) {
			pair := pairs[tsIdx]
			tsIdx++
			if startMS < 0 {
				startMS = pair[0]
			}
			endMS = pair[1]
		}

		if _, terminator := terminatorSet[ch]; terminator {
			flush()
		}
	}
	flush()

	return segments
}

func normalizeTimestampPairs(raw [][]float64) [][2]float64 {
	pairs := make([][2]float64, 0, len(raw))
	for _, item := range raw {
		if len(item) < 2 {
			continue
		}
		pairs = append(pairs, [2]float64{item[0], item[1]})
	}
	return pairs
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

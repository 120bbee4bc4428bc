package text

import "strings"

// ChunkTranscript splits a transcript into indexable chunks of at most
// maxChars characters, preferring paragraph boundaries, then sentence
// boundaries. overlap characters from the end of a chunk are repeated at the
// start of the next so search hits near a boundary keep their context.
func ChunkTranscript(transcript string, maxChars, overlap int) []string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = 1000
	}
	if overlap < 0 || overlap >= maxChars {
		overlap = 0
	}

	if len(transcript) <= maxChars {
		return []string{transcript}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		if overlap > 0 && len(chunk) > overlap {
			current.WriteString(chunk[len(chunk)-overlap:])
			current.WriteString(" ")
		}
	}

	for _, para := range strings.Split(transcript, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		for _, sentence := range splitSentences(para) {
			// A single sentence longer than maxChars is split hard, without
			// overlap seeding so no chunk ever exceeds maxChars.
			for len(sentence) > maxChars {
				if strings.TrimSpace(current.String()) != "" {
					chunks = append(chunks, strings.TrimSpace(current.String()))
				}
				current.Reset()
				chunks = append(chunks, sentence[:maxChars])
				sentence = sentence[maxChars:]
			}

			if current.Len()+len(sentence)+1 > maxChars {
				flush()
				// Drop the overlap seed when it would not leave room.
				if current.Len()+len(sentence)+1 > maxChars {
					current.Reset()
				}
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		chunk := strings.TrimSpace(current.String())
		chunks = append(chunks, chunk)
	}

	return chunks
}

func splitSentences(s string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			// Consume trailing punctuation runs ("..." or "?!")
			end := i + 1
			for end < len(s) && (s[end] == '.' || s[end] == '!' || s[end] == '?') {
				end++
			}
			sentence := strings.TrimSpace(s[start:end])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = end
			i = end - 1
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

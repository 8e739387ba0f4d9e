package policy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/eproeerr"
)

type rawDocument []rawApnEntry

type rawApnEntry struct {
	ApnName    string         `json:"ApnName"`
	ErrorTypes []rawErrorType `json:"ErrorTypes"`
}

type rawErrorType struct {
	ErrorType            string   `json:"ErrorType"`
	ErrorDetails         []string `json:"ErrorDetails"`
	RetryArray           []string `json:"RetryArray"`
	UnthrottlingEvents   []string `json:"UnthrottlingEvents"`
	NumAttemptsPerFqdn   *int     `json:"NumAttemptsPerFqdn,omitempty"`
	HandoverAttemptCount *int     `json:"HandoverAttemptCount,omitempty"`
}

// StripComments removes every line whose first non-whitespace character is
// '#', the convention spec.md §6 reserves for the default policy asset.
func StripComments(data []byte) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// Parse compiles a JSON policy document into a Table. When stripComments is
// true, lines starting with '#' are removed first (the default-asset
// convention); carrier overlays are parsed without stripping.
func Parse(data []byte, stripComments bool) (*Table, error) {
	if stripComments {
		data = StripComments(data)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eproeerr.New(eproeerr.CodePolicyMalformed, "invalid JSON document", err)
	}

	table := newTable()
	for _, entry := range raw {
		apn := strings.TrimSpace(entry.ApnName)
		if apn == "" {
			return nil, eproeerr.WithContext(
				eproeerr.New(eproeerr.CodePolicyMalformed, "ApnName must not be empty", nil),
				entry.ApnName, -1, "ApnName")
		}

		compiled := make([]*ErrorPolicy, 0, len(entry.ErrorTypes))
		for i, et := range entry.ErrorTypes {
			p, err := compileErrorType(et, apn, i)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, p)
		}
		table.ByApn[apn] = append(table.ByApn[apn], compiled...)
	}
	return table, nil
}

func compileErrorType(et rawErrorType, apn string, index int) (*ErrorPolicy, error) {
	fail := func(field, msg string) error {
		return eproeerr.WithContext(
			eproeerr.New(eproeerr.CodePolicyMalformed, msg, nil), apn, index, field)
	}

	var errType ErrorType
	switch et.ErrorType {
	case "*":
		errType = Fallback
	case "GENERIC_ERROR_TYPE":
		errType = Generic
	case "IKE_PROTOCOL_ERROR_TYPE":
		errType = IkeProtocol
	default:
		return nil, fail("ErrorType", fmt.Sprintf("unknown ErrorType %q", et.ErrorType))
	}

	details, err := compileErrorDetails(errType, et.ErrorDetails)
	if err != nil {
		return nil, fail("ErrorDetails", err.Error())
	}

	retryArray, infinite, err := compileRetryArray(et.RetryArray)
	if err != nil {
		return nil, fail("RetryArray", err.Error())
	}

	events, err := compileEvents(et.UnthrottlingEvents)
	if err != nil {
		return nil, fail("UnthrottlingEvents", err.Error())
	}

	if et.HandoverAttemptCount != nil && errType != IkeProtocol {
		return nil, fail("HandoverAttemptCount", "only valid when ErrorType is IKE_PROTOCOL_ERROR_TYPE")
	}
	if et.HandoverAttemptCount != nil && *et.HandoverAttemptCount < 0 {
		return nil, fail("HandoverAttemptCount", "must be non-negative")
	}

	numAttempts := 0
	if et.NumAttemptsPerFqdn != nil {
		if *et.NumAttemptsPerFqdn <= 0 {
			return nil, fail("NumAttemptsPerFqdn", "must be a positive integer")
		}
		numAttempts = *et.NumAttemptsPerFqdn
	}

	return &ErrorPolicy{
		ErrorType:                        errType,
		ErrorDetails:                     details,
		RetryArray:                       retryArray,
		InfiniteRetriesWithLastRetryTime: infinite,
		UnthrottlingEvents:               events,
		NumAttemptsPerFqdn:               numAttempts,
		HandoverAttemptCount:             et.HandoverAttemptCount,
	}, nil
}

func compileErrorDetails(errType ErrorType, tokens []string) ([]DetailToken, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("ErrorDetails must not be empty")
	}

	if errType == Fallback {
		if len(tokens) != 1 || strings.TrimSpace(tokens[0]) != "*" {
			return nil, fmt.Errorf("Fallback ErrorType requires ErrorDetails == [\"*\"]")
		}
		return []DetailToken{{Wildcard: true}}, nil
	}

	result := make([]DetailToken, 0, len(tokens))
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "*" {
			result = append(result, DetailToken{Wildcard: true})
			continue
		}

		switch errType {
		case Generic:
			g := cause.NonIkeErrorType(tok)
			if !cause.GenericClosedSet[g] {
				return nil, fmt.Errorf("unknown Generic error detail %q", tok)
			}
			result = append(result, DetailToken{Generic: g})
		case IkeProtocol:
			if strings.Contains(tok, "-") {
				parts := strings.SplitN(tok, "-", 2)
				min, err1 := strconv.Atoi(parts[0])
				max, err2 := strconv.Atoi(parts[1])
				if err1 != nil || err2 != nil || min < 0 || max < 0 || min > max {
					return nil, fmt.Errorf("invalid IKE protocol range %q", tok)
				}
				result = append(result, DetailToken{IkeMin: min, IkeMax: max})
			} else {
				v, err := strconv.Atoi(tok)
				if err != nil || v < 0 {
					return nil, fmt.Errorf("invalid IKE protocol detail %q", tok)
				}
				result = append(result, DetailToken{IkeMin: v, IkeMax: v})
			}
		}
	}
	return result, nil
}

func compileRetryArray(tokens []string) ([]int, bool, error) {
	if len(tokens) == 0 {
		return []int{}, false, nil
	}

	arr := make([]int, len(tokens))
	for i, raw := range tokens {
		tok := strings.TrimSpace(raw)

		if tok == "-1" {
			if i != len(tokens)-1 || len(tokens) < 2 {
				return nil, false, fmt.Errorf("-1 is only valid as the last entry of an array of length >= 2")
			}
			arr[i] = -1
			continue
		}

		if idx := strings.Index(tok, "+r"); idx >= 0 {
			base, err1 := strconv.Atoi(tok[:idx])
			span, err2 := strconv.Atoi(tok[idx+2:])
			if err1 != nil || err2 != nil || base < 0 || span < 0 {
				return nil, false, fmt.Errorf("invalid randomized retry token %q", tok)
			}
			draw := 0
			if span > 0 {
				draw = rand.Intn(span)
			}
			arr[i] = base + draw
			continue
		}

		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("invalid retry token %q", tok)
		}
		arr[i] = n
	}

	infinite := len(arr) >= 2 && arr[len(arr)-1] == -1
	return arr, infinite, nil
}

func compileEvents(tokens []string) (map[UnthrottlingEvent]struct{}, error) {
	set := make(map[UnthrottlingEvent]struct{}, len(tokens))
	for _, raw := range tokens {
		ev := UnthrottlingEvent(strings.TrimSpace(raw))
		if !ValidEvents[ev] {
			return nil, fmt.Errorf("unknown UnthrottlingEvent %q", raw)
		}
		set[ev] = struct{}{}
	}
	return set, nil
}

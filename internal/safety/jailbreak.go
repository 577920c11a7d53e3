package safety

import (
	"regexp"
	"strings"
)

// JailbreakScan contains the result of an instruction-override scan.
type JailbreakScan struct {
	// Blocked is true if the message should not reach the LLM coach.
	Blocked bool
	// Score is a rough heuristic risk score (0.0 = safe, 1.0 = definite attempt).
	Score float64
	// Reasons lists the detection signals that fired.
	Reasons []string
}

// jailbreakPattern is a compiled regex with a reason label and weight.
type jailbreakPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

// jailbreakBlockThreshold: messages scoring at or above this are refused.
const jailbreakBlockThreshold = 0.7

var jailbreakPatterns = []jailbreakPattern{
	// Attempts to override standing instructions.
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?|programming)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)override\s+(your\s+)?(system|instructions?|rules?|safety|guidelines?)`), "override:override_keyword", 0.8},
	{regexp.MustCompile(`(?i)do\s+not\s+follow\s+(your|the|any)\s+(rules?|instructions?|guidelines?|safety)`), "override:do_not_follow", 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|guidelines?|rules?|content\s+policy)`), "override:bypass", 0.8},

	// Role reassignment.
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "role:reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|system\s*prompt\s*:`), "role:new_role", 0.9},
	{regexp.MustCompile(`(?i)act\s+as\s+(if\s+)?(you\s+are\s+|you're\s+)?(a\s+|an\s+)?(different|new|unrestricted|unfiltered|jailbroken)`), "role:act_as", 0.8},
	{regexp.MustCompile(`(?i)(pretend|imagine|suppose|assume)\s+(that\s+)?(you\s+)?(are|have|were|don'?t\s+have)\s+(no\s+)?(rules?|restrictions?|limits?|boundaries|guidelines?|filters?|safety)`), "role:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|unrestricted\s*mode|god\s*mode`), "role:jailbreak_keyword", 0.9},

	// Attempts to extract the system prompt.
	{regexp.MustCompile(`(?i)(reveal|show|display|print|output|repeat|tell\s+me|what\s+(is|are))\s+(your\s+)?(system\s+prompt|instructions?|rules?|initial\s+prompt|hidden\s+prompt|system\s+message|original\s+prompt)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all|the\s+text)\s+(above|before|from\s+the\s+start|from\s+the\s+beginning)`), "exfiltration:repeat_above", 0.7},

	// Fake conversation boundaries.
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`), "context:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user)\s*:`), "context:role_markers", 0.7},
	{regexp.MustCompile(`(?i)the\s+real\s+(instructions?|task|prompt|conversation)\s+(is|starts?|begins?)`), "context:real_instructions", 0.8},
}

// ScanForJailbreak analyzes inbound user text for instruction-override attempts.
func ScanForJailbreak(message string) JailbreakScan {
	if strings.TrimSpace(message) == "" {
		return JailbreakScan{}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range jailbreakPatterns {
		if p.re.MatchString(message) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	// Multiple signals compound: add 0.1 per additional signal (capped at 1.0).
	score := maxWeight
	if len(reasons) > 1 {
		score = maxWeight + float64(len(reasons)-1)*0.1
		if score > 1.0 {
			score = 1.0
		}
	}

	return JailbreakScan{
		Blocked: score >= jailbreakBlockThreshold,
		Score:   score,
		Reasons: reasons,
	}
}

// ContainsJailbreakAttempt reports whether the message should be refused as an
// instruction-override attempt.
func ContainsJailbreakAttempt(message string) bool {
	return ScanForJailbreak(message).Blocked
}

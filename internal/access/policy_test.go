/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package access

import (
	"context"
	"testing"
)

func TestConfiguredAdminHoldsEveryCapability(t *testing.T) {
	p, err := NewPolicy([]string{"Asad"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, c := range []Capability{DeleteMessageRange, PurgeMessages, SeedData} {
		if !p.Can("Asad", c) {
			t.Errorf("Asad should hold %s", c)
		}
	}
}

func TestOtherSubjectsAreDenied(t *testing.T) {
	p, err := NewPolicy([]string{"Asad", "  "})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, subject := range []string{"Kylie", "", "asad", "admin"} {
		if p.Can(subject, DeleteMessageRange) {
			t.Errorf("%q should not hold %s", subject, DeleteMessageRange)
		}
	}
}

func TestNoAdminsConfigured(t *testing.T) {
	p, err := NewPolicy(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Can("Asad", PurgeMessages) {
		t.Errorf("Nobody should be an admin without configuration")
	}
}

func TestOperatorContextIsAllowed(t *testing.T) {
	p, _ := NewPolicy(nil)
	ctx := context.Background()

	if Allowed(ctx, p, "Kylie", PurgeMessages) {
		t.Errorf("Kylie should not be allowed without operator rights")
	}
	if !Allowed(AsOperator(ctx), p, "Kylie", PurgeMessages) {
		t.Errorf("An operator context should be allowed")
	}
	if Allowed(ctx, nil, "Kylie", PurgeMessages) {
		t.Errorf("A missing authorizer must deny")
	}
}

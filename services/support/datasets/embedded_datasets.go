// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bakes the default support knowledge datasets into the compiled
binary via the Go embed package. The FAQ answers and account-status records
ship with the executable so a fresh deployment answers common questions with
no external data directory; operators point the support service at their own
JSON files to replace them.
*/

package datasets

import (
	_ "embed"
)

// FAQ holds the raw byte content of 'faq.json': the default question and
// answer entries matched lexically against inbound support messages.
//
//go:embed faq.json
var FAQ []byte

// AccountStatus holds the raw byte content of 'account_status.json': trigger
// phrases mapped to canned account-state explanations.
//
//go:embed account_status.json
var AccountStatus []byte

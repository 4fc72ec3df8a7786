// SPDX-License-Identifier: Apache-2.0

//go:build !unix && !windows

package region

func mapAnon(int) ([]byte, error) {
	return nil, ErrMapUnsupported
}

func unmapAnon([]byte) error {
	return nil
}

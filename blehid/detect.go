package blehid

// reportMapBuf bounds how much of a report map is read for detection.
const reportMapBuf = 512

// DetectType classifies a HID peer from its discovered service.
//
// Boot characteristics decide when they are unambiguous. Otherwise the
// report map is scanned for a top-level Generic Desktop usage:
// keyboard (05 01 09 06) or mouse (05 01 09 02). Anything still
// undecided is treated as a keyboard.
func DetectType(svc Service) DeviceType {
	var bootKbd, bootMouse bool
	var reportMap Characteristic
	for _, c := range svc.Characteristics() {
		switch c.UUID() {
		case UUIDBootKbdInput:
			bootKbd = true
		case UUIDBootMouseInput:
			bootMouse = true
		case UUIDReportMap:
			reportMap = c
		}
	}

	if bootKbd && !bootMouse {
		return TypeKeyboard
	}
	if bootMouse && !bootKbd {
		return TypePointer
	}

	if reportMap != nil {
		var buf [reportMapBuf]byte
		if n, err := reportMap.Read(buf[:]); err == nil {
			switch scanReportMap(buf[:n]) {
			case TypeKeyboard:
				return TypeKeyboard
			case TypePointer:
				return TypePointer
			}
		}
	}
	return TypeKeyboard
}

// scanReportMap looks for the first top-level Generic Desktop usage.
func scanReportMap(m []byte) DeviceType {
	for i := 0; i+3 < len(m); i++ {
		if m[i] != 0x05 || m[i+1] != 0x01 || m[i+2] != 0x09 {
			continue
		}
		switch m[i+3] {
		case 0x06:
			return TypeKeyboard
		case 0x02:
			return TypePointer
		}
	}
	return TypeUnknown
}

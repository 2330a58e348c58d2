package core

// CRC16 calculates the CCITT-style CRC16 used to check settings records.
// An empty input yields 0xFFFF.
func CRC16(data []byte) uint16 {
	return crc16Update(0xFFFF, data)
}

func crc16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

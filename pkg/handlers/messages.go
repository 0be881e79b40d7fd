package handlers

// Fixed replies used when the grounded handler cannot or should not call the
// generator.
const (
	ClarifyMessage = "무엇이 궁금하신지 조금 더 구체적으로 말씀해 주세요. " +
		"예: \"명동교자 칼국수 맛 어때요?\""

	DegradedMessage = "지금은 리뷰 데이터를 불러올 수 없어 리뷰 기반 답변을 드리기 어렵습니다. " +
		"잠시 후 다시 시도해 주세요."

	NoEvidenceMessage = "관련된 리뷰를 찾지 못했습니다. 다른 표현으로 다시 질문해 주시겠어요?"
)
